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

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/callbus"
	"github.com/livekit/callorch/pkg/calltest"
	"github.com/livekit/callorch/pkg/config"
	"github.com/livekit/callorch/pkg/orchestrator"
)

func newTestService(t *testing.T) (*Service, *calltest.Backend, *calltest.UI, chan error) {
	conf, err := config.NewConfig("access_token: test\nidentity: alice\n")
	require.NoError(t, err)

	backend := calltest.NewBackend()
	backend.Auto = true
	ui := calltest.NewUI()
	ui.AutoDeliver = true

	svc, err := NewService(conf, nil, backend, ui)
	require.NoError(t, err)
	backend.SetSink(svc.Orchestrator())
	ui.SetSink(svc.Orchestrator())

	done := make(chan error, 1)
	go func() {
		done <- svc.Run()
	}()
	t.Cleanup(func() {
		svc.Stop(true)
	})
	return svc, backend, ui, done
}

func waitState(t *testing.T, sub *callbus.Subscription[callbus.Status], exp callbus.CallState) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		st, err := sub.Next(ctx)
		require.NoError(t, err, "waiting for %s", exp)
		if st.State() == exp {
			return
		}
	}
}

func TestServiceCallOverBus(t *testing.T) {
	svc, backend, _, done := newTestService(t)
	status := svc.Bus().Status()
	defer status.Close()

	svc.Bus().PublishOperation(callbus.StartCall("+1 (650) 253-0000"))
	waitState(t, status, callbus.CallActive)
	require.Len(t, backend.Connects(), 1)
	require.Equal(t, "+16502530000", backend.Connects()[0].To)

	svc.Bus().PublishOperation(callbus.EndCall())
	waitState(t, status, callbus.CallIdle)
	require.Len(t, backend.Disconnects(), 1)

	svc.Stop(true)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestServiceGracefulStop(t *testing.T) {
	svc, backend, ui, done := newTestService(t)
	status := svc.Bus().Status()
	defer status.Close()

	svc.Bus().PublishOperation(callbus.StartCall("bob"))
	waitState(t, status, callbus.CallActive)

	svc.Stop(false)
	require.False(t, svc.CanAccept())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
	}
	require.Len(t, backend.Disconnects(), 1)
	require.Equal(t, callbus.CallIdle, svc.Bus().LatestStatus().State())
	require.Empty(t, ui.Ended())
}

func TestServicePushAndQuality(t *testing.T) {
	svc, backend, ui, _ := newTestService(t)
	quality := svc.QualityEvents()
	defer quality.Close()
	quality.Drain()

	svc.Push().OnTokenUpdated([]byte{1, 2, 3})
	require.Eventually(t, func() bool {
		return len(backend.Registrations()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	svc.Push().OnPushPayload(calltest.InvitePayload("inv-1", "client:carol", true))
	require.Eventually(t, func() bool {
		return len(ui.Incoming()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	id := ui.Incoming()[0].ActionID

	status := svc.Bus().Status()
	defer status.Close()
	a := ui.Answer(id)
	<-a.Done()
	require.True(t, a.Fulfilled())
	waitState(t, status, callbus.CallActive)

	svc.Orchestrator().Submit(orchestrator.BackendQualityWarnings{
		ActionID: id,
		Current:  orchestrator.NewWarningSet(orchestrator.WarningHighPacketLoss),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := quality.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, orchestrator.QualityEvent{
		ActionID: id,
		Warnings: orchestrator.NewWarningSet(orchestrator.WarningHighPacketLoss),
	}, ev)
}
