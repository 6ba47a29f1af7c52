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

package calltest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/livekit/callorch/pkg/orchestrator"
)

type Toggle struct {
	SessionID string
	On        bool
}

// Payload is the push payload format understood by Backend.
type Payload struct {
	Type     string `json:"type"`
	InviteID string `json:"invite_id"`
	From     string `json:"from,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

func InvitePayload(inviteID, from string, verified bool) []byte {
	data, _ := json.Marshal(Payload{Type: "invite", InviteID: inviteID, From: from, Verified: verified})
	return data
}

func CancelPayload(inviteID string) []byte {
	data, _ := json.Marshal(Payload{Type: "cancel", InviteID: inviteID})
	return data
}

// Backend records every request. With Auto set it also plays the callbacks a real backend would send:
// ringing and connected after Connect, connected after Accept, disconnected after Disconnect.
type Backend struct {
	Auto  bool
	Delay time.Duration

	ConnectErr       error
	AcceptErr        error
	DisconnectErr    error
	SpeakerErr       error
	RegisterFailures int
	// ConnectGate, when set, holds Connect until it is closed.
	ConnectGate chan struct{}

	mu            sync.Mutex
	sink          Sink
	next          int
	bySession     map[string]orchestrator.ActionID
	connects      []orchestrator.ConnectRequest
	accepts       []string
	rejects       []string
	disconnects   []string
	holds         []Toggle
	mutes         []Toggle
	speaker       []bool
	audio         []bool
	registrations [][]byte
}

func NewBackend() *Backend {
	return &Backend{bySession: make(map[string]orchestrator.ActionID)}
}

func (b *Backend) SetSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

func (b *Backend) emit(ev orchestrator.Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink.Submit(ev)
	}
}

func (b *Backend) later(events ...orchestrator.Event) {
	go func() {
		for _, ev := range events {
			if b.Delay > 0 {
				time.Sleep(b.Delay)
			}
			b.emit(ev)
		}
	}()
}

func (b *Backend) newSession(id orchestrator.ActionID) string {
	b.next++
	sid := "SE_" + strconv.Itoa(b.next)
	b.bySession[sid] = id
	return sid
}

func (b *Backend) Connect(_ context.Context, req orchestrator.ConnectRequest) (string, error) {
	if b.ConnectGate != nil {
		<-b.ConnectGate
	}
	b.mu.Lock()
	b.connects = append(b.connects, req)
	if b.ConnectErr != nil {
		b.mu.Unlock()
		return "", b.ConnectErr
	}
	sid := b.newSession(req.ActionID)
	b.mu.Unlock()
	if b.Auto {
		b.later(
			orchestrator.BackendRinging{ActionID: req.ActionID},
			orchestrator.BackendConnected{ActionID: req.ActionID},
		)
	}
	return sid, nil
}

func (b *Backend) Accept(_ context.Context, inviteID string, id orchestrator.ActionID) (string, error) {
	b.mu.Lock()
	b.accepts = append(b.accepts, inviteID)
	if b.AcceptErr != nil {
		b.mu.Unlock()
		return "", b.AcceptErr
	}
	sid := b.newSession(id)
	b.mu.Unlock()
	if b.Auto {
		b.later(orchestrator.BackendConnected{ActionID: id})
	}
	return sid, nil
}

func (b *Backend) Reject(_ context.Context, inviteID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejects = append(b.rejects, inviteID)
	return nil
}

func (b *Backend) Disconnect(_ context.Context, sessionID string) error {
	b.mu.Lock()
	b.disconnects = append(b.disconnects, sessionID)
	if b.DisconnectErr != nil {
		b.mu.Unlock()
		return b.DisconnectErr
	}
	id, ok := b.bySession[sessionID]
	delete(b.bySession, sessionID)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown session %q", sessionID)
	}
	if b.Auto {
		b.later(orchestrator.BackendDisconnected{ActionID: id})
	}
	return nil
}

func (b *Backend) SetHold(_ context.Context, sessionID string, onHold bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holds = append(b.holds, Toggle{SessionID: sessionID, On: onHold})
	return nil
}

func (b *Backend) SetMute(_ context.Context, sessionID string, muted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutes = append(b.mutes, Toggle{SessionID: sessionID, On: muted})
	return nil
}

func (b *Backend) SetAudioEnabled(_ context.Context, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, enabled)
	return nil
}

func (b *Backend) SetSpeaker(_ context.Context, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SpeakerErr != nil {
		return b.SpeakerErr
	}
	b.speaker = append(b.speaker, enabled)
	return nil
}

func (b *Backend) RegisterForPush(_ context.Context, token []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrations = append(b.registrations, token)
	if b.RegisterFailures > 0 {
		b.RegisterFailures--
		return fmt.Errorf("registration rejected")
	}
	return nil
}

func (b *Backend) HandlePushPayload(_ context.Context, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	switch p.Type {
	case "invite":
		b.emit(orchestrator.InviteReceived{InviteID: p.InviteID, From: p.From, Verified: p.Verified})
	case "cancel":
		b.emit(orchestrator.InviteCancelled{InviteID: p.InviteID})
	default:
		return fmt.Errorf("unknown payload type %q", p.Type)
	}
	return nil
}

// ActionFor returns the action id the backend was given for a session.
func (b *Backend) ActionFor(sessionID string) orchestrator.ActionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bySession[sessionID]
}

func (b *Backend) Connects() []orchestrator.ConnectRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]orchestrator.ConnectRequest(nil), b.connects...)
}

func (b *Backend) Accepts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.accepts...)
}

func (b *Backend) Rejects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rejects...)
}

func (b *Backend) Disconnects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.disconnects...)
}

func (b *Backend) Holds() []Toggle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Toggle(nil), b.holds...)
}

func (b *Backend) Mutes() []Toggle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Toggle(nil), b.mutes...)
}

func (b *Backend) Speaker() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.speaker...)
}

func (b *Backend) AudioEnabled() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.audio...)
}

func (b *Backend) Registrations() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.registrations...)
}
