// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
)

// onPushPayload hands the payload to the backend for decoding. Invites come back as events.
func (o *Orchestrator) onPushPayload(ctx context.Context, payload []byte) {
	bctx := context.WithoutCancel(ctx)
	go func() {
		if err := o.backend.HandlePushPayload(bctx, payload); err != nil {
			o.log.Warnw("could not handle push payload", err, "size", len(payload))
		}
	}()
}

// onToken queues a token change. An empty token is the invalidation signal.
func (o *Orchestrator) onToken(ctx context.Context, token []byte) {
	o.tokMu.Lock()
	o.tokens.PushBack(token)
	start := !o.tokBusy
	o.tokBusy = true
	o.tokMu.Unlock()
	if start {
		go o.registerTokens(context.WithoutCancel(ctx))
	}
}

// registerTokens handles token changes one at a time, in the order they arrived.
func (o *Orchestrator) registerTokens(ctx context.Context) {
	for {
		o.tokMu.Lock()
		if o.tokens.Len() == 0 {
			o.tokBusy = false
			o.tokMu.Unlock()
			return
		}
		token := o.tokens.PopFront()
		o.tokMu.Unlock()
		o.registerToken(ctx, token)
	}
}

func (o *Orchestrator) registerToken(ctx context.Context, token []byte) {
	if o.push != nil {
		if err := o.push.Register(ctx, token); err != nil {
			o.log.Warnw("could not update push registration", err, "invalidated", len(token) == 0)
		}
		return
	}
	if len(token) == 0 {
		o.log.Infow("push token invalidated")
		return
	}
	if err := o.backend.RegisterForPush(ctx, token); err != nil {
		o.log.Warnw("could not register push token", err)
		return
	}
	o.log.Infow("registered push token")
}
