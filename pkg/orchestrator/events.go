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

// Event is anything the orchestrator reacts to. Every event is handled on the orchestrator loop, one at a time.
type Event interface {
	eventName() string
}

// actionEvent is a UI action that carries an Action to resolve.
type actionEvent interface {
	Event
	actionKind() ActionKind
	actionID() ActionID
	action() Action
}

// Requests from the UI layer, usually relayed from the call status bus.

type RequestStart struct {
	Recipient string
}

type RequestEnd struct{}

type SetAudioConfig struct {
	SpeakerEnabled bool
}

func (RequestStart) eventName() string   { return "RequestStart" }
func (RequestEnd) eventName() string     { return "RequestEnd" }
func (SetAudioConfig) eventName() string { return "SetAudioConfig" }

// Call UI actions.

type UIStart struct {
	ActionID ActionID
	Handle   string
	Action   Action
}

type UIAnswer struct {
	ActionID ActionID
	Action   Action
}

type UIEnd struct {
	ActionID ActionID
	Action   Action
}

type UIHold struct {
	ActionID ActionID
	OnHold   bool
	Action   Action
}

type UIMute struct {
	ActionID ActionID
	Muted    bool
	Action   Action
}

// ProviderReset is sent when the platform call UI drops all of its calls.
type ProviderReset struct{}

// AudioSessionActivated and AudioSessionDeactivated report the platform handing the audio session
// to the call UI or taking it back.
type AudioSessionActivated struct{}

type AudioSessionDeactivated struct{}

func (UIStart) eventName() string       { return "UIStart" }
func (UIAnswer) eventName() string      { return "UIAnswer" }
func (UIEnd) eventName() string         { return "UIEnd" }
func (UIHold) eventName() string        { return "UIHold" }
func (UIMute) eventName() string        { return "UIMute" }
func (ProviderReset) eventName() string { return "ProviderReset" }

func (AudioSessionActivated) eventName() string   { return "AudioSessionActivated" }
func (AudioSessionDeactivated) eventName() string { return "AudioSessionDeactivated" }

func (e UIStart) actionKind() ActionKind  { return ActionStart }
func (e UIAnswer) actionKind() ActionKind { return ActionAnswer }
func (e UIEnd) actionKind() ActionKind    { return ActionEnd }
func (e UIHold) actionKind() ActionKind   { return ActionHold }
func (e UIMute) actionKind() ActionKind   { return ActionMute }

func (e UIStart) actionID() ActionID  { return e.ActionID }
func (e UIAnswer) actionID() ActionID { return e.ActionID }
func (e UIEnd) actionID() ActionID    { return e.ActionID }
func (e UIHold) actionID() ActionID   { return e.ActionID }
func (e UIMute) actionID() ActionID   { return e.ActionID }

func (e UIStart) action() Action  { return e.Action }
func (e UIAnswer) action() Action { return e.Action }
func (e UIEnd) action() Action    { return e.Action }
func (e UIHold) action() Action   { return e.Action }
func (e UIMute) action() Action   { return e.Action }

// Backend callbacks. The backend reports calls by the action id passed to Connect or Accept.

type BackendRinging struct {
	ActionID ActionID
}

type BackendConnecting struct {
	ActionID ActionID
}

type BackendConnected struct {
	ActionID ActionID
}

type BackendReconnecting struct {
	ActionID ActionID
	Err      error
}

type BackendReconnected struct {
	ActionID ActionID
}

type BackendFailedToConnect struct {
	ActionID ActionID
	Err      error
}

// BackendDisconnected reports a terminal disconnect. Err is nil when the remote side hung up.
type BackendDisconnected struct {
	ActionID ActionID
	Err      error
}

type BackendQualityWarnings struct {
	ActionID ActionID
	Current  WarningSet
	Previous WarningSet
}

type InviteReceived struct {
	InviteID string
	From     string
	Verified bool
}

type InviteCancelled struct {
	InviteID string
}

func (BackendRinging) eventName() string         { return "BackendRinging" }
func (BackendConnecting) eventName() string      { return "BackendConnecting" }
func (BackendConnected) eventName() string       { return "BackendConnected" }
func (BackendReconnecting) eventName() string    { return "BackendReconnecting" }
func (BackendReconnected) eventName() string     { return "BackendReconnected" }
func (BackendFailedToConnect) eventName() string { return "BackendFailedToConnect" }
func (BackendDisconnected) eventName() string    { return "BackendDisconnected" }
func (BackendQualityWarnings) eventName() string { return "BackendQualityWarnings" }
func (InviteReceived) eventName() string         { return "InviteReceived" }
func (InviteCancelled) eventName() string        { return "InviteCancelled" }

// Push deliveries.

type PushPayload struct {
	Payload []byte
}

type TokenUpdated struct {
	Token []byte
}

type TokenInvalidated struct{}

func (PushPayload) eventName() string      { return "PushPayload" }
func (TokenUpdated) eventName() string     { return "TokenUpdated" }
func (TokenInvalidated) eventName() string { return "TokenInvalidated" }

// Internal events.

type backendResult struct {
	ActionID  ActionID
	SessionID string
	Err       error
}

type snapshotRequest struct {
	reply chan Snapshot
}

func (backendResult) eventName() string   { return "backendResult" }
func (snapshotRequest) eventName() string { return "snapshot" }
