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
	"sync"

	"github.com/livekit/callorch/pkg/orchestrator"
)

var (
	_ orchestrator.Backend = (*Backend)(nil)
	_ orchestrator.CallUI  = (*UI)(nil)
	_ orchestrator.Action  = (*Action)(nil)
)

type OutgoingReport struct {
	ActionID orchestrator.ActionID
	State    orchestrator.OutgoingState
}

type IncomingReport struct {
	ActionID orchestrator.ActionID
	Caller   string
}

type EndedReport struct {
	ActionID orchestrator.ActionID
	Reason   orchestrator.EndReason
}

// UI records reports and action requests. With AutoDeliver set, every requested action is
// delivered straight back to the orchestrator, like a platform call UI that accepts every request.
type UI struct {
	AutoDeliver    bool
	RejectIncoming error
	RefuseRequests error
	// Reassign makes ReportIncoming answer with its own action id instead of the proposed one.
	Reassign bool

	mu       sync.Mutex
	sink     Sink
	requests []orchestrator.ActionRequest
	outgoing []OutgoingReport
	incoming []IncomingReport
	ended    []EndedReport
	actions  []*Action
}

func NewUI() *UI {
	return &UI{}
}

func (u *UI) SetSink(sink Sink) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sink = sink
}

func (u *UI) RequestAction(_ context.Context, req orchestrator.ActionRequest) error {
	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.mu.Unlock()
	if u.RefuseRequests != nil {
		return u.RefuseRequests
	}
	if !u.AutoDeliver {
		return nil
	}
	switch req.Kind {
	case orchestrator.ActionStart:
		u.Start(req.ActionID, req.Handle)
	case orchestrator.ActionAnswer:
		u.Answer(req.ActionID)
	case orchestrator.ActionEnd:
		u.End(req.ActionID)
	case orchestrator.ActionHold:
		u.Hold(req.ActionID, req.Enabled)
	case orchestrator.ActionMute:
		u.Mute(req.ActionID, req.Enabled)
	}
	return nil
}

func (u *UI) ReportOutgoing(_ context.Context, id orchestrator.ActionID, state orchestrator.OutgoingState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.outgoing = append(u.outgoing, OutgoingReport{ActionID: id, State: state})
}

func (u *UI) ReportIncoming(_ context.Context, id orchestrator.ActionID, caller string) (orchestrator.ActionID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.incoming = append(u.incoming, IncomingReport{ActionID: id, Caller: caller})
	if u.RejectIncoming != nil {
		return "", u.RejectIncoming
	}
	if u.Reassign {
		id = orchestrator.NewActionID()
		u.incoming[len(u.incoming)-1].ActionID = id
	}
	return id, nil
}

func (u *UI) ReportEnded(_ context.Context, id orchestrator.ActionID, reason orchestrator.EndReason) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ended = append(u.ended, EndedReport{ActionID: id, Reason: reason})
}

func (u *UI) deliver(ev func(a *Action) orchestrator.Event) *Action {
	a := NewAction()
	u.mu.Lock()
	u.actions = append(u.actions, a)
	sink := u.sink
	u.mu.Unlock()
	if sink != nil {
		sink.Submit(ev(a))
	}
	return a
}

func (u *UI) Start(id orchestrator.ActionID, handle string) *Action {
	return u.deliver(func(a *Action) orchestrator.Event {
		return orchestrator.UIStart{ActionID: id, Handle: handle, Action: a}
	})
}

func (u *UI) Answer(id orchestrator.ActionID) *Action {
	return u.deliver(func(a *Action) orchestrator.Event {
		return orchestrator.UIAnswer{ActionID: id, Action: a}
	})
}

func (u *UI) End(id orchestrator.ActionID) *Action {
	return u.deliver(func(a *Action) orchestrator.Event {
		return orchestrator.UIEnd{ActionID: id, Action: a}
	})
}

func (u *UI) Hold(id orchestrator.ActionID, onHold bool) *Action {
	return u.deliver(func(a *Action) orchestrator.Event {
		return orchestrator.UIHold{ActionID: id, OnHold: onHold, Action: a}
	})
}

func (u *UI) Mute(id orchestrator.ActionID, muted bool) *Action {
	return u.deliver(func(a *Action) orchestrator.Event {
		return orchestrator.UIMute{ActionID: id, Muted: muted, Action: a}
	})
}

func (u *UI) Requests() []orchestrator.ActionRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]orchestrator.ActionRequest(nil), u.requests...)
}

// RequestsOf returns the requested actions of one kind.
func (u *UI) RequestsOf(kind orchestrator.ActionKind) []orchestrator.ActionRequest {
	var out []orchestrator.ActionRequest
	for _, r := range u.Requests() {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (u *UI) Outgoing() []OutgoingReport {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]OutgoingReport(nil), u.outgoing...)
}

func (u *UI) Incoming() []IncomingReport {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]IncomingReport(nil), u.incoming...)
}

func (u *UI) Ended() []EndedReport {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]EndedReport(nil), u.ended...)
}

// Actions returns every action delivered so far, in delivery order.
func (u *UI) Actions() []*Action {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*Action(nil), u.actions...)
}
