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

package callbus

import (
	"fmt"
)

type OperationKind int

const (
	OperationNone OperationKind = iota
	OperationStart
	OperationEnd
)

func (k OperationKind) String() string {
	switch k {
	case OperationNone:
		return "none"
	case OperationStart:
		return "start"
	case OperationEnd:
		return "end"
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// Operation is a call request published by a UI layer.
type Operation struct {
	Kind      OperationKind
	Recipient string
}

func StartCall(recipient string) Operation {
	return Operation{Kind: OperationStart, Recipient: recipient}
}

func EndCall() Operation {
	return Operation{Kind: OperationEnd}
}

type AudioConfig struct {
	SpeakerEnabled bool
}

type Status struct {
	Active     bool
	Connecting bool
}

type CallState int

const (
	CallIdle CallState = iota
	CallConnecting
	CallActive
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallConnecting:
		return "connecting"
	case CallActive:
		return "active"
	}
	return fmt.Sprintf("CallState(%d)", int(s))
}

// State collapses the status pair into a single display state. Connecting wins over active.
func (s Status) State() CallState {
	switch {
	case s.Connecting:
		return CallConnecting
	case s.Active:
		return CallActive
	default:
		return CallIdle
	}
}
