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

func (o *Orchestrator) onRinging(e BackendRinging) {
	s := o.lookup(e.ActionID, "ringing")
	if s == nil {
		return
	}
	s.status = StatusRinging
	s.log.Debugw("ringing")
	o.publishStatus(false, true)
}

func (o *Orchestrator) onConnecting(e BackendConnecting) {
	s := o.lookup(e.ActionID, "connecting")
	if s == nil {
		return
	}
	s.status = StatusConnecting
	o.publishStatus(false, true)
}

func (o *Orchestrator) onConnected(ctx context.Context, e BackendConnected) {
	s := o.lookup(e.ActionID, "connected")
	if s == nil {
		return
	}
	if s.endRequested {
		s.log.Infow("call connected after it was ended, waiting for disconnect")
		return
	}
	s.status = StatusActive
	if s.onHold {
		s.status = StatusHolding
	}
	o.activeID = s.id
	s.mon.CallStart()
	s.log.Infow("call connected")
	o.publishStatus(true, false)
	o.complete(ctx, s.id, true)
}

func (o *Orchestrator) onReconnecting(e BackendReconnecting) {
	s := o.lookup(e.ActionID, "reconnecting")
	if s == nil {
		return
	}
	s.status = StatusConnecting
	s.log.Warnw("call reconnecting", e.Err)
	o.publishStatus(false, true)
}

func (o *Orchestrator) onReconnected(e BackendReconnected) {
	s := o.lookup(e.ActionID, "reconnected")
	if s == nil {
		return
	}
	s.status = StatusActive
	if s.onHold {
		s.status = StatusHolding
	}
	s.log.Infow("call reconnected")
	o.publishStatus(true, false)
}

func (o *Orchestrator) onFailedToConnect(ctx context.Context, e BackendFailedToConnect) {
	s := o.lookup(e.ActionID, "failed-to-connect")
	if s == nil {
		return
	}
	o.failCall(ctx, s, e.Err)
}

func (o *Orchestrator) onDisconnected(ctx context.Context, e BackendDisconnected) {
	s := o.lookup(e.ActionID, "disconnected")
	if s == nil {
		return
	}
	reason := classifyDisconnect(s.userInitiated, e.Err)
	if e.Err != nil {
		s.log.Warnw("call disconnected with error", e.Err, "reason", reason)
	}
	if reason != EndUserInitiated {
		o.ui.ReportEnded(ctx, s.id, reason)
	}
	o.complete(ctx, s.id, false)
	o.removeSession(s, reason)
	o.publishStatus(false, false)
}

func (o *Orchestrator) onQualityWarnings(e BackendQualityWarnings) {
	if o.lookup(e.ActionID, "quality-warnings") == nil {
		return
	}
	added, cleared := DiffWarnings(e.Current, e.Previous)
	if len(added) > 0 {
		o.emitQuality(QualityEvent{ActionID: e.ActionID, Warnings: added})
	}
	if len(cleared) > 0 {
		o.emitQuality(QualityEvent{ActionID: e.ActionID, Warnings: cleared, Cleared: true})
	}
}

func (o *Orchestrator) emitQuality(ev QualityEvent) {
	if ev.Cleared {
		o.log.Infow("call quality warnings cleared", "actionID", ev.ActionID, "warnings", ev.Warnings.String())
	} else {
		o.log.Warnw("call quality warnings detected", nil, "actionID", ev.ActionID, "warnings", ev.Warnings.String())
	}
	for _, k := range ev.Warnings.Sorted() {
		o.mon.QualityWarning(string(k), ev.Cleared)
	}
	if o.onQuality != nil {
		o.onQuality(ev)
	}
}
