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

	"github.com/livekit/callorch/pkg/callbus"
)

// Backend is the telephony SDK that carries media and signaling.
// Connect and Accept may take as long as call setup does; the orchestrator calls them off its loop.
// Lifecycle callbacks are delivered back as events through Orchestrator.Submit.
type Backend interface {
	Connect(ctx context.Context, req ConnectRequest) (sessionID string, err error)
	Accept(ctx context.Context, inviteID string, id ActionID) (sessionID string, err error)
	Reject(ctx context.Context, inviteID string) error
	Disconnect(ctx context.Context, sessionID string) error
	SetHold(ctx context.Context, sessionID string, onHold bool) error
	SetMute(ctx context.Context, sessionID string, muted bool) error
	SetAudioEnabled(ctx context.Context, enabled bool) error
	SetSpeaker(ctx context.Context, enabled bool) error
	RegisterForPush(ctx context.Context, token []byte) error
	// HandlePushPayload decodes a push payload into InviteReceived or InviteCancelled events.
	HandlePushPayload(ctx context.Context, payload []byte) error
}

// CallUI is the platform call screen.
type CallUI interface {
	RequestAction(ctx context.Context, req ActionRequest) error
	ReportOutgoing(ctx context.Context, id ActionID, state OutgoingState)
	// ReportIncoming returns the action id the UI uses for the call, or an error if platform policy rejected it.
	ReportIncoming(ctx context.Context, id ActionID, caller string) (ActionID, error)
	ReportEnded(ctx context.Context, id ActionID, reason EndReason)
}

// Action is a UI request that must be fulfilled or failed exactly once.
type Action interface {
	Fulfill()
	Fail(err error)
}

type Publisher interface {
	PublishStatus(st callbus.Status)
	PublishConfiguration(cfg callbus.AudioConfig)
}

// PushRegistrar registers push tokens with the backend. An empty token means the token was invalidated.
type PushRegistrar interface {
	Register(ctx context.Context, token []byte) error
	Touch(ctx context.Context) error
}
