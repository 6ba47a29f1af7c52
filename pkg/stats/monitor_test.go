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

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/config"
)

func TestMonitor(t *testing.T) {
	conf := &config.Config{NodeID: "stats-test"}
	m, err := NewMonitor(conf)
	require.NoError(t, err)
	require.False(t, m.CanAccept())

	// Not started yet: recording is a no-op.
	m.InviteReceived()
	m.NewCall(Inbound).CallStart()

	require.NoError(t, m.Start(conf))
	t.Cleanup(m.Stop)
	require.True(t, m.CanAccept())

	m.InviteReceived()
	m.InviteCanceled()
	require.Equal(t, 1.0, testutil.ToFloat64(m.invites))
	require.Equal(t, 1.0, testutil.ToFloat64(m.invitesCanceled))

	m.UIAction("answer", true)
	m.UIAction("answer", false)
	m.UIAction("answer", false)
	require.Equal(t, 1.0, testutil.ToFloat64(m.uiActions.WithLabelValues("answer", "fulfilled")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.uiActions.WithLabelValues("answer", "failed")))

	m.QualityWarning("high-rtt", false)
	m.QualityWarning("high-rtt", true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.qualityWarnings.WithLabelValues("high-rtt", "true")))

	m.PushRegistration("ok")
	require.Equal(t, 1.0, testutil.ToFloat64(m.pushRegister.WithLabelValues("ok")))

	m.Shutdown()
	require.False(t, m.CanAccept())
}

func TestCallMonitor(t *testing.T) {
	conf := &config.Config{NodeID: "stats-test"}
	m, err := NewMonitor(conf)
	require.NoError(t, err)
	require.NoError(t, m.Start(conf))
	t.Cleanup(m.Stop)

	active := m.callsActive.WithLabelValues("out")
	base := testutil.ToFloat64(active)

	c := m.NewCall(Outbound)
	c.CallStart()
	c.CallStart()
	require.Equal(t, base+1, testutil.ToFloat64(active))

	c.CallEnd()
	c.CallEnd()
	require.Equal(t, base, testutil.ToFloat64(active))

	c.CallTerminate("remote-ended")
	c.CallTerminate("failed")
	require.Equal(t, 1.0, testutil.ToFloat64(m.callsTerminated.WithLabelValues("out", "remote-ended")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.callsTerminated.WithLabelValues("out", "failed")))

	require.Equal(t, "in", Inbound.String())
	require.Equal(t, "out", Outbound.String())
}
