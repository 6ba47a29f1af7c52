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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/callbus"
	"github.com/livekit/callorch/pkg/calltest"
	"github.com/livekit/callorch/pkg/orchestrator"
)

func TestOrchestratorPushFlow(t *testing.T) {
	backend := calltest.NewBackend()
	backend.RegisterFailures = 1
	ui := calltest.NewUI()
	store := NewMemoryStore()
	clock := time.Unix(1_700_000_000, 0)
	reg := newTestRegistrar(backend, store, &clock)

	o := orchestrator.New(orchestrator.Config{}, backend, ui, callbus.NewPublisher(callbus.New()),
		orchestrator.WithPushRegistrar(reg),
	)
	backend.SetSink(o)
	ui.SetSink(o)
	go func() {
		_ = o.Run(context.Background())
	}()
	t.Cleanup(func() {
		o.Stop()
		<-o.Done()
	})
	g := NewGateway(o, nil)

	g.OnTokenUpdated([]byte{0xbe, 0xef})
	require.Eventually(t, func() bool {
		_, ok, _ := store.Get(context.Background())
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, backend.Registrations(), 2)

	clock = clock.Add(time.Minute)
	g.OnPushPayload(calltest.InvitePayload("inv-1", "client:alice", true))
	require.Eventually(t, func() bool {
		b, _, _ := store.Get(context.Background())
		return b.Date.Equal(clock)
	}, 2*time.Second, 5*time.Millisecond, "verified invite refreshes the binding")
	require.Equal(t, "alice", ui.Incoming()[0].Caller)

	g.OnTokenInvalidated()
	require.Eventually(t, func() bool {
		_, ok, _ := store.Get(context.Background())
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, backend.Registrations(), 2)
}
