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

package push

import (
	"bytes"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/callorch/pkg/orchestrator"
)

type Sink interface {
	Submit(ev orchestrator.Event)
}

// Gateway turns push deliveries from the platform into orchestrator events.
type Gateway struct {
	sink Sink
	log  logger.Logger
}

func NewGateway(sink Sink, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Gateway{sink: sink, log: log}
}

func (g *Gateway) OnTokenUpdated(token []byte) {
	if len(token) == 0 {
		g.OnTokenInvalidated()
		return
	}
	g.log.Debugw("push token updated", "size", len(token))
	g.sink.Submit(orchestrator.TokenUpdated{Token: bytes.Clone(token)})
}

func (g *Gateway) OnTokenInvalidated() {
	g.log.Debugw("push token invalidated")
	g.sink.Submit(orchestrator.TokenInvalidated{})
}

func (g *Gateway) OnPushPayload(payload []byte) {
	g.log.Debugw("push payload received", "size", len(payload))
	g.sink.Submit(orchestrator.PushPayload{Payload: bytes.Clone(payload)})
}
