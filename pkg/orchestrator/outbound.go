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

	"github.com/livekit/callorch/pkg/errors"
)

// requestStart starts an outbound call. While another call exists it ends that call instead;
// the new start is not queued and has to be requested again once the old call is gone.
func (o *Orchestrator) requestStart(ctx context.Context, recipient string) {
	if cur := o.current(); cur != nil {
		cur.log.Infow("call in progress, ending it instead of starting a new one", "recipient", recipient, "status", cur.status)
		o.endCall(ctx, cur)
		return
	}
	to := o.normalizeRecipient(recipient)
	if to == "" {
		o.log.Warnw("ignoring start without recipient", nil)
		return
	}
	s := o.newSession(NewActionID(), Outbound)
	s.recipient = to
	s.log = s.log.WithValues("to", to)
	s.log.Infow("starting call")

	err := o.ui.RequestAction(ctx, ActionRequest{Kind: ActionStart, ActionID: s.id, Handle: to})
	if err != nil {
		s.log.Warnw("call UI refused start request", err)
		o.removeSession(s, EndFailed)
		o.publishStatus(false, false)
	}
}

func (o *Orchestrator) requestEnd(ctx context.Context) {
	cur := o.current()
	if cur == nil {
		o.log.Debugw("no call to end")
		return
	}
	cur.log.Infow("ending call", "status", cur.status)
	o.endCall(ctx, cur)
}

func (o *Orchestrator) onUIStart(ctx context.Context, e UIStart, a Action) {
	s := o.sessions[e.ActionID]
	if s == nil || s.dir != Outbound || s.connecting || s.sessionID != "" {
		o.log.Infow("start action for unknown call", "actionID", e.ActionID)
		a.Fail(errors.ErrUnknownAction)
		return
	}
	o.ui.ReportOutgoing(ctx, s.id, OutgoingConnecting)
	o.publishStatus(false, true)
	o.setCompletion(s)
	s.connecting = true
	a.Fulfill()

	req := ConnectRequest{ActionID: s.id, To: s.recipient}
	bctx := context.WithoutCancel(ctx)
	go func() {
		sessionID, err := o.backend.Connect(bctx, req)
		o.Submit(backendResult{ActionID: req.ActionID, SessionID: sessionID, Err: err})
	}()
}

// onBackendResult handles the return of Connect or Accept.
func (o *Orchestrator) onBackendResult(ctx context.Context, e backendResult) {
	s := o.sessions[e.ActionID]
	if s == nil {
		if e.Err == nil && e.SessionID != "" {
			o.log.Infow("backend connected a call that already ended, disconnecting", "actionID", e.ActionID, "sessionID", e.SessionID)
			if err := o.backend.Disconnect(ctx, e.SessionID); err != nil {
				o.log.Warnw("backend disconnect failed", err, "sessionID", e.SessionID)
			}
		}
		return
	}
	s.connecting = false
	if e.Err != nil {
		o.failCall(ctx, s, e.Err)
		return
	}
	s.sessionID = e.SessionID
	s.log = s.log.WithValues("sessionID", e.SessionID)
	if s.endRequested {
		s.log.Infow("call ended while connecting")
		o.disconnect(ctx, s)
		return
	}
	if s.dir == Inbound && s.status == StatusInitiating {
		s.status = StatusConnecting
		o.publishStatus(false, true)
	}
}
