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

// Package calltest provides in-memory stand-ins for the telephony backend and the platform call UI.
package calltest

import (
	"sync"

	"github.com/livekit/callorch/pkg/orchestrator"
)

type Sink interface {
	Submit(ev orchestrator.Event)
}

// Action records how a UI action was resolved.
type Action struct {
	mu        sync.Mutex
	fulfilled int
	failed    int
	err       error
	done      chan struct{}
}

func NewAction() *Action {
	return &Action{done: make(chan struct{})}
}

func (a *Action) Fulfill() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fulfilled++
	a.resolved()
}

func (a *Action) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed++
	a.err = err
	a.resolved()
}

func (a *Action) resolved() {
	if a.fulfilled+a.failed == 1 {
		close(a.done)
	}
}

// Done is closed on the first resolution.
func (a *Action) Done() <-chan struct{} {
	return a.done
}

// Resolutions is the number of Fulfill and Fail calls together.
func (a *Action) Resolutions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fulfilled + a.failed
}

func (a *Action) Fulfilled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fulfilled == 1 && a.failed == 0
}

func (a *Action) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
