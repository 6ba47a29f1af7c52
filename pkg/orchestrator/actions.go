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

func (o *Orchestrator) onUIEnd(ctx context.Context, e UIEnd, a Action) {
	if inv := o.invites[e.ActionID]; inv != nil {
		delete(o.invites, inv.id)
		o.ended.Add(inv.id, EndUserInitiated)
		o.log.Infow("rejecting invite", "inviteID", inv.inviteID, "actionID", inv.id)
		if err := o.backend.Reject(ctx, inv.inviteID); err != nil {
			o.log.Warnw("backend reject failed", err, "inviteID", inv.inviteID)
		}
		a.Fulfill()
		return
	}
	if s := o.sessions[e.ActionID]; s != nil {
		s.log.Infow("end action", "status", s.status)
		o.disconnect(ctx, s)
		a.Fulfill()
		return
	}
	if _, ok := o.ended.Get(e.ActionID); ok {
		// Already gone, e.g. a canceled invite. Ending it again is fine.
		a.Fulfill()
		return
	}
	o.log.Infow("end action for unknown call", "actionID", e.ActionID)
	a.Fail(errors.ErrUnknownAction)
}

func (o *Orchestrator) onUIHold(ctx context.Context, e UIHold, a Action) {
	s := o.sessions[e.ActionID]
	if s == nil {
		o.log.Infow("hold action for unknown call", "actionID", e.ActionID)
		a.Fail(errors.ErrUnknownAction)
		return
	}
	if s.sessionID == "" {
		a.Fail(errors.ErrNotConnected)
		return
	}
	if err := o.backend.SetHold(ctx, s.sessionID, e.OnHold); err != nil {
		s.log.Warnw("backend hold failed", err, "onHold", e.OnHold)
		a.Fail(err)
		return
	}
	s.onHold = e.OnHold
	switch {
	case e.OnHold && s.status == StatusActive:
		s.status = StatusHolding
	case !e.OnHold && s.status == StatusHolding:
		s.status = StatusActive
	}
	if !e.OnHold {
		if err := o.backend.SetAudioEnabled(ctx, true); err != nil {
			s.log.Warnw("could not enable audio", err)
		}
		o.activeID = s.id
	}
	s.log.Infow("hold changed", "onHold", e.OnHold)
	a.Fulfill()
}

func (o *Orchestrator) onUIMute(ctx context.Context, e UIMute, a Action) {
	s := o.sessions[e.ActionID]
	if s == nil {
		o.log.Infow("mute action for unknown call", "actionID", e.ActionID)
		a.Fail(errors.ErrUnknownAction)
		return
	}
	if s.sessionID == "" {
		a.Fail(errors.ErrNotConnected)
		return
	}
	if err := o.backend.SetMute(ctx, s.sessionID, e.Muted); err != nil {
		s.log.Warnw("backend mute failed", err, "muted", e.Muted)
		a.Fail(err)
		return
	}
	s.muted = e.Muted
	s.log.Infow("mute changed", "muted", e.Muted)
	a.Fulfill()
}

// providerReset drops every call and invite. The call UI already forgot them, so nothing is reported back.
func (o *Orchestrator) providerReset(ctx context.Context) {
	o.log.Infow("call UI reset", "calls", len(o.sessions), "invites", len(o.invites))
	if err := o.backend.SetAudioEnabled(ctx, false); err != nil {
		o.log.Warnw("could not disable audio", err)
	}
	for _, s := range o.sessions {
		s.userInitiated = true
		if s.sessionID != "" {
			if err := o.backend.Disconnect(ctx, s.sessionID); err != nil {
				s.log.Warnw("backend disconnect failed", err)
			}
		}
		o.removeSession(s, EndFailed)
	}
	for id, inv := range o.invites {
		delete(o.invites, id)
		o.ended.Add(id, EndFailed)
		if err := o.backend.Reject(ctx, inv.inviteID); err != nil {
			o.log.Warnw("backend reject failed", err, "inviteID", inv.inviteID)
		}
	}
	o.pending = nil
	o.publishStatus(false, false)
}
