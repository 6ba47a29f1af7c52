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

package push

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/orchestrator"
)

type recordSink struct {
	mu     sync.Mutex
	events []orchestrator.Event
}

func (s *recordSink) Submit(ev orchestrator.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestGateway(t *testing.T) {
	sink := &recordSink{}
	g := NewGateway(sink, nil)

	token := []byte{1, 2, 3}
	g.OnTokenUpdated(token)
	token[0] = 9
	g.OnTokenUpdated(nil)
	g.OnTokenInvalidated()
	g.OnPushPayload([]byte(`{"type":"cancel","invite_id":"inv-1"}`))

	require.Equal(t, []orchestrator.Event{
		orchestrator.TokenUpdated{Token: []byte{1, 2, 3}},
		orchestrator.TokenInvalidated{},
		orchestrator.TokenInvalidated{},
		orchestrator.PushPayload{Payload: []byte(`{"type":"cancel","invite_id":"inv-1"}`)},
	}, sink.events)
}
