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

	"github.com/livekit/callorch/pkg/errors"
)

func (o *Orchestrator) onInvite(ctx context.Context, e InviteReceived) {
	log := o.log.WithValues("inviteID", e.InviteID)
	if o.findInvite(e.InviteID) != nil {
		log.Debugw("duplicate invite")
		return
	}
	caller := callerDisplay(e.From, o.conf.DefaultCaller)
	if e.Verified {
		log.Infow("invite from verified caller", "caller", caller)
		if o.push != nil {
			go func() {
				if err := o.push.Touch(context.WithoutCancel(ctx)); err != nil {
					log.Warnw("could not refresh push binding", err)
				}
			}()
		}
	} else {
		log.Infow("invite from unverified caller", "caller", caller)
	}
	o.mon.InviteReceived()

	proposed := NewActionID()
	id, err := o.ui.ReportIncoming(ctx, proposed, caller)
	if err != nil {
		log.Infow("call UI rejected incoming call", "error", err)
		if err = o.backend.Reject(ctx, e.InviteID); err != nil {
			log.Warnw("backend reject failed", err)
		}
		return
	}
	if id == "" {
		id = proposed
	}
	o.invites[id] = &callInvite{
		id:         id,
		inviteID:   e.InviteID,
		caller:     caller,
		verified:   e.Verified,
		receivedAt: time.Now(),
	}
	log.Debugw("invite reported", "actionID", id)
}

// onInviteCancelled matches by backend invite id, since the UI may know the call under another action id.
func (o *Orchestrator) onInviteCancelled(ctx context.Context, e InviteCancelled) {
	inv := o.findInvite(e.InviteID)
	if inv == nil {
		o.log.Debugw("cancel for unknown invite", "inviteID", e.InviteID)
		return
	}
	delete(o.invites, inv.id)
	o.ended.Add(inv.id, EndRemoteEnded)
	o.mon.InviteCanceled()
	o.log.Infow("invite canceled", "inviteID", e.InviteID, "actionID", inv.id)

	err := o.ui.RequestAction(ctx, ActionRequest{Kind: ActionEnd, ActionID: inv.id})
	if err != nil {
		o.log.Warnw("call UI refused end request", err, "actionID", inv.id)
		o.ui.ReportEnded(ctx, inv.id, EndRemoteEnded)
	}
}

func (o *Orchestrator) onUIAnswer(ctx context.Context, e UIAnswer, a Action) {
	inv := o.invites[e.ActionID]
	if inv == nil {
		o.log.Infow("answer for unknown invite", "actionID", e.ActionID)
		a.Fail(errors.ErrUnknownInvite)
		return
	}
	if cur := o.current(); cur != nil {
		cur.log.Infow("answering another call, ending this one first", "answer", e.ActionID)
		o.endCall(ctx, cur)
		a.Fail(errors.ErrCallActive)
		return
	}
	delete(o.invites, inv.id)

	s := o.newSession(inv.id, Inbound)
	s.inviteID = inv.inviteID
	s.recipient = inv.caller
	s.log = s.log.WithValues("inviteID", inv.inviteID, "from", inv.caller)
	s.log.Infow("answering call")
	o.setCompletion(s)
	s.connecting = true
	a.Fulfill()

	inviteID, id := inv.inviteID, inv.id
	bctx := context.WithoutCancel(ctx)
	go func() {
		sessionID, err := o.backend.Accept(bctx, inviteID, id)
		o.Submit(backendResult{ActionID: id, SessionID: sessionID, Err: err})
	}()
}
