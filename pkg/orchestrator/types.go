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
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/livekit/callorch/pkg/stats"
)

// ActionID identifies a call towards the call UI. It stays stable for the call's UI lifetime.
type ActionID string

func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

func (d Direction) callDir() stats.CallDir {
	if d == Inbound {
		return stats.Inbound
	}
	return stats.Outbound
}

type SessionStatus int

const (
	StatusInitiating SessionStatus = iota
	StatusRinging
	StatusConnecting
	StatusActive
	StatusHolding
)

func (s SessionStatus) String() string {
	switch s {
	case StatusInitiating:
		return "initiating"
	case StatusRinging:
		return "ringing"
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusHolding:
		return "holding"
	}
	return fmt.Sprintf("SessionStatus(%d)", int(s))
}

// EndReason classifies why a call or invite left the tables.
type EndReason int

const (
	EndUserInitiated EndReason = iota
	EndRemoteEnded
	EndFailed
)

func (r EndReason) String() string {
	switch r {
	case EndUserInitiated:
		return "user-initiated"
	case EndRemoteEnded:
		return "remote-ended"
	case EndFailed:
		return "failed"
	}
	return fmt.Sprintf("EndReason(%d)", int(r))
}

func classifyDisconnect(userInitiated bool, err error) EndReason {
	switch {
	case userInitiated:
		return EndUserInitiated
	case err != nil:
		return EndFailed
	default:
		return EndRemoteEnded
	}
}

type OutgoingState int

const (
	OutgoingConnecting OutgoingState = iota
	OutgoingConnected
)

func (s OutgoingState) String() string {
	if s == OutgoingConnected {
		return "connected"
	}
	return "connecting"
}

type ActionKind int

const (
	ActionStart ActionKind = iota
	ActionAnswer
	ActionEnd
	ActionHold
	ActionMute
)

func (k ActionKind) String() string {
	switch k {
	case ActionStart:
		return "start"
	case ActionAnswer:
		return "answer"
	case ActionEnd:
		return "end"
	case ActionHold:
		return "hold"
	case ActionMute:
		return "mute"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ActionRequest asks the call UI to run an action. The UI answers by delivering the matching UI event.
type ActionRequest struct {
	Kind     ActionKind
	ActionID ActionID
	Handle   string
	Enabled  bool
}

type ConnectRequest struct {
	ActionID ActionID
	To       string
}

type WarningKind string

const (
	WarningHighRTT            WarningKind = "high-rtt"
	WarningHighJitter         WarningKind = "high-jitter"
	WarningHighPacketLoss     WarningKind = "high-packet-loss"
	WarningLowMOS             WarningKind = "low-mos"
	WarningConstantAudioInput WarningKind = "constant-audio-input-level"
	WarningUnknown            WarningKind = "unknown"
)

func ParseWarningKind(s string) WarningKind {
	switch k := WarningKind(s); k {
	case WarningHighRTT, WarningHighJitter, WarningHighPacketLoss, WarningLowMOS, WarningConstantAudioInput:
		return k
	}
	return WarningUnknown
}

type WarningSet map[WarningKind]struct{}

func NewWarningSet(kinds ...WarningKind) WarningSet {
	s := make(WarningSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s WarningSet) Has(k WarningKind) bool {
	_, ok := s[k]
	return ok
}

func (s WarningSet) Sorted() []WarningKind {
	out := make([]WarningKind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (s WarningSet) String() string {
	kinds := s.Sorted()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// DiffWarnings splits two warning sets into newly raised and cleared warnings.
// Warnings present in both sets appear in neither result.
func DiffWarnings(current, previous WarningSet) (added, cleared WarningSet) {
	added = make(WarningSet)
	cleared = make(WarningSet)
	for k := range current {
		if !previous.Has(k) {
			added[k] = struct{}{}
		}
	}
	for k := range previous {
		if !current.Has(k) {
			cleared[k] = struct{}{}
		}
	}
	return added, cleared
}

type QualityEvent struct {
	ActionID ActionID
	Warnings WarningSet
	Cleared  bool
}
