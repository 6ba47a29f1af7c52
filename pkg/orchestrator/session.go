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
	"time"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/callorch/pkg/errors"
	"github.com/livekit/callorch/pkg/stats"
)

type callSession struct {
	id        ActionID
	sessionID string
	dir       Direction
	status    SessionStatus
	recipient string
	inviteID  string
	muted     bool
	onHold    bool

	// userInitiated marks an end requested locally, so the disconnect is not reported as remote or failed.
	userInitiated bool
	// connecting is set while Connect or Accept runs on the backend.
	connecting bool
	// endRequested is set when the call was ended before the backend returned its session id.
	endRequested bool

	log        logger.Logger
	mon        *stats.CallMonitor
	connectDur func() time.Duration
}

func (s *callSession) info() SessionInfo {
	return SessionInfo{
		ActionID:      s.id,
		SessionID:     s.sessionID,
		Direction:     s.dir,
		Status:        s.status,
		Recipient:     s.recipient,
		Muted:         s.muted,
		OnHold:        s.onHold,
		UserInitiated: s.userInitiated,
	}
}

type callInvite struct {
	id         ActionID
	inviteID   string
	caller     string
	verified   bool
	receivedAt time.Time
}

func (inv *callInvite) info() InviteInfo {
	return InviteInfo{
		ActionID:   inv.id,
		InviteID:   inv.inviteID,
		Caller:     inv.caller,
		Verified:   inv.verified,
		ReceivedAt: inv.receivedAt,
	}
}

func (o *Orchestrator) newSession(id ActionID, dir Direction) *callSession {
	s := &callSession{
		id:     id,
		dir:    dir,
		status: StatusInitiating,
		log:    o.log.WithValues("actionID", id, "dir", dir),
		mon:    o.mon.NewCall(dir.callDir()),
	}
	o.sessions[id] = s
	return s
}

// current returns the call that blocks a new one. The tables only hold calls that have not ended,
// and there is never more than one of them.
func (o *Orchestrator) current() *callSession {
	if s := o.sessions[o.activeID]; s != nil {
		return s
	}
	for _, s := range o.sessions {
		return s
	}
	return nil
}

func (o *Orchestrator) findInvite(inviteID string) *callInvite {
	for _, inv := range o.invites {
		if inv.inviteID == inviteID {
			return inv
		}
	}
	return nil
}

// lookup returns the session for a backend callback, or nil if the call is gone.
func (o *Orchestrator) lookup(id ActionID, event string) *callSession {
	s := o.sessions[id]
	if s != nil {
		return s
	}
	if reason, ok := o.ended.Get(id); ok {
		o.log.Debugw("dropping callback for ended call", "actionID", id, "event", event, "reason", reason)
	} else {
		o.log.Infow("dropping callback for unknown call", "actionID", id, "event", event)
	}
	return nil
}

// removeSession drops the call from the tables. It does not publish or report anything.
func (o *Orchestrator) removeSession(s *callSession, reason EndReason) {
	delete(o.sessions, s.id)
	if o.activeID == s.id {
		o.activeID = ""
	}
	o.ended.Add(s.id, reason)
	s.mon.CallEnd()
	s.mon.CallTerminate(reason.String())
	s.log.Infow("call ended", "reason", reason, "status", s.status)
}

func (o *Orchestrator) setCompletion(s *callSession) {
	s.connectDur = s.mon.ConnectDur()
	o.pending = &completion{
		id: s.id,
		fn: func(ctx context.Context, ok bool) {
			if !ok {
				s.log.Infow("call did not connect")
				return
			}
			if s.connectDur != nil {
				s.log.Debugw("call connected", "setup", s.connectDur())
			}
			if s.dir == Outbound {
				o.ui.ReportOutgoing(ctx, s.id, OutgoingConnected)
			}
		},
	}
}

// complete runs the pending start or answer completion for the call, if it is still pending.
func (o *Orchestrator) complete(ctx context.Context, id ActionID, ok bool) {
	if o.pending == nil || o.pending.id != id {
		return
	}
	fn := o.pending.fn
	o.pending = nil
	fn(ctx, ok)
}

// endCall asks the call UI to end the call and marks the disconnect as user-initiated.
func (o *Orchestrator) endCall(ctx context.Context, s *callSession) {
	s.userInitiated = true
	err := o.ui.RequestAction(ctx, ActionRequest{Kind: ActionEnd, ActionID: s.id})
	if err != nil {
		s.log.Warnw("call UI refused end request, disconnecting directly", err)
		o.disconnect(ctx, s)
	}
}

// disconnect tears the call down on the backend. The session leaves the tables when the backend confirms,
// or right away if the backend never saw it.
func (o *Orchestrator) disconnect(ctx context.Context, s *callSession) {
	s.userInitiated = true
	if s.sessionID == "" {
		if s.connecting {
			s.endRequested = true
			return
		}
		o.complete(ctx, s.id, false)
		o.removeSession(s, EndUserInitiated)
		o.publishStatus(false, false)
		return
	}
	if err := o.backend.Disconnect(ctx, s.sessionID); err != nil {
		// No disconnected callback follows a failed disconnect.
		s.log.Warnw("backend disconnect failed, dropping call", err)
		o.complete(ctx, s.id, false)
		o.removeSession(s, EndUserInitiated)
		o.publishStatus(false, false)
	}
}

// failCall handles a call that could not be set up.
func (o *Orchestrator) failCall(ctx context.Context, s *callSession, err error) {
	if err == nil {
		err = errors.ErrCallFailed
	}
	s.log.Warnw("call failed to connect", err)
	if !s.userInitiated {
		o.ui.ReportEnded(ctx, s.id, EndFailed)
	}
	o.publishStatus(false, false)
	o.complete(ctx, s.id, false)
	reason := EndFailed
	if s.userInitiated {
		reason = EndUserInitiated
	}
	o.removeSession(s, reason)
}
