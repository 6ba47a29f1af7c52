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
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/frostbyte73/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/livekit/callorch/pkg/config"
)

// Durations are in seconds
var (
	// durBucketsOp lists histogram buckets for relatively short operations like call setup.
	durBucketsOp = []float64{
		0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 3 * 60,
	}
	// durBucketsLong lists histogram buckets for long operations like call durations.
	durBucketsLong = []float64{
		1, 10, 60, 10 * 60, 30 * 60, 3600, 6 * 3600, 12 * 3600, 24 * 3600,
	}
)

type CallDir bool

func (d CallDir) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

const (
	Inbound  = CallDir(false)
	Outbound = CallDir(true)
)

type Monitor struct {
	nodeID string

	invites         prometheus.Counter
	invitesCanceled prometheus.Counter
	uiActions       *prometheus.CounterVec
	callsActive     *prometheus.GaugeVec
	callsTerminated *prometheus.CounterVec
	durConnect      *prometheus.HistogramVec
	durCall         *prometheus.HistogramVec
	qualityWarnings *prometheus.CounterVec
	pushRegister    *prometheus.CounterVec
	nodeAvailable   prometheus.GaugeFunc

	metrics  []prometheus.Collector
	started  core.Fuse
	shutdown core.Fuse
}

func NewMonitor(conf *config.Config) (*Monitor, error) {
	m := &Monitor{
		nodeID: conf.NodeID,
	}
	return m, nil
}

func mustRegister[T prometheus.Collector](m *Monitor, c T) T {
	err := prometheus.Register(c)
	if err != nil {
		var e prometheus.AlreadyRegisteredError
		if errors.As(err, &e) {
			return e.ExistingCollector.(T)
		} else {
			panic(err)
		}
	}
	m.metrics = append(m.metrics, c)
	return c
}

func (m *Monitor) Start(conf *config.Config) error {
	prometheus.Unregister(collectors.NewGoCollector())
	mustRegister(m, collectors.NewGoCollector(collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsAll)))

	labels := prometheus.Labels{"node_id": conf.NodeID}

	m.invites = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "invites_received",
		Help:        "Number of inbound call invites resolved from push payloads",
		ConstLabels: labels,
	}))

	m.invitesCanceled = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "invites_canceled",
		Help:        "Number of pending invites canceled by the caller",
		ConstLabels: labels,
	}))

	m.uiActions = mustRegister(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "ui_actions",
		Help:        "Number of call UI actions by outcome",
		ConstLabels: labels,
	}, []string{"action", "result"}))

	m.callsActive = mustRegister(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "calls_active",
		Help:        "Number of currently connected calls",
		ConstLabels: labels,
	}, []string{"dir"}))

	m.callsTerminated = mustRegister(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "calls_terminated",
		Help:        "Number of calls ended, by classified reason",
		ConstLabels: labels,
	}, []string{"dir", "reason"}))

	m.durConnect = mustRegister(m, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "dur_connect_sec",
		Help:        "Call setup duration (from start or answer to connected)",
		ConstLabels: labels,
		Buckets:     durBucketsOp,
	}, []string{"dir"}))

	m.durCall = mustRegister(m, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "dur_call_sec",
		Help:        "Call duration (from connected to ended)",
		ConstLabels: labels,
		Buckets:     durBucketsLong,
	}, []string{"dir"}))

	m.qualityWarnings = mustRegister(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "quality_warnings",
		Help:        "Number of call quality warnings raised or cleared",
		ConstLabels: labels,
	}, []string{"warning", "cleared"}))

	m.pushRegister = mustRegister(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "push_registrations",
		Help:        "Number of push token registrations by result",
		ConstLabels: labels,
	}, []string{"result"}))

	m.nodeAvailable = mustRegister(m, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "livekit",
		Subsystem:   "voice",
		Name:        "available",
		Help:        "Whether the client can place or take calls",
		ConstLabels: labels,
	}, func() float64 {
		if m.CanAccept() {
			return 1
		}
		return 0
	}))

	m.started.Break()

	return nil
}

func (m *Monitor) Shutdown() {
	m.shutdown.Break()
}

func (m *Monitor) Stop() {
	for _, c := range m.metrics {
		prometheus.Unregister(c)
	}
	m.metrics = nil
}

func (m *Monitor) CanAccept() bool {
	return m.started.IsBroken() && !m.shutdown.IsBroken()
}

func (m *Monitor) InviteReceived() {
	if !m.started.IsBroken() {
		return
	}
	m.invites.Inc()
}

func (m *Monitor) InviteCanceled() {
	if !m.started.IsBroken() {
		return
	}
	m.invitesCanceled.Inc()
}

// UIAction records the outcome of a call UI action.
func (m *Monitor) UIAction(action string, fulfilled bool) {
	if !m.started.IsBroken() {
		return
	}
	result := "failed"
	if fulfilled {
		result = "fulfilled"
	}
	m.uiActions.WithLabelValues(action, result).Inc()
}

func (m *Monitor) QualityWarning(warning string, cleared bool) {
	if !m.started.IsBroken() {
		return
	}
	m.qualityWarnings.WithLabelValues(warning, strconv.FormatBool(cleared)).Inc()
}

func (m *Monitor) PushRegistration(result string) {
	if !m.started.IsBroken() {
		return
	}
	m.pushRegister.WithLabelValues(result).Inc()
}

func (m *Monitor) NewCall(dir CallDir) *CallMonitor {
	return &CallMonitor{
		m:   m,
		dir: dir,
	}
}

type CallMonitor struct {
	m          *Monitor
	dir        CallDir
	started    atomic.Bool
	terminated atomic.Bool
	stopDur    func() time.Duration
}

func (c *CallMonitor) labels(l prometheus.Labels) prometheus.Labels {
	out := prometheus.Labels{"dir": c.dir.String()}
	for k, v := range l {
		out[k] = v
	}
	return out
}

// CallStart marks the call as connected. Repeated calls (e.g. after a reconnect) are ignored.
func (c *CallMonitor) CallStart() {
	if !c.m.started.IsBroken() || !c.started.CompareAndSwap(false, true) {
		return
	}
	c.m.callsActive.With(c.labels(nil)).Inc()
	c.stopDur = c.CallDur()
}

func (c *CallMonitor) CallEnd() {
	if !c.m.started.IsBroken() || !c.started.CompareAndSwap(true, false) {
		return
	}
	c.m.callsActive.With(c.labels(nil)).Dec()
	if c.stopDur != nil {
		c.stopDur()
		c.stopDur = nil
	}
}

func (c *CallMonitor) CallTerminate(reason string) {
	if !c.m.started.IsBroken() || !c.terminated.CompareAndSwap(false, true) {
		return
	}
	c.m.callsTerminated.With(c.labels(prometheus.Labels{"reason": reason})).Inc()
}

func (c *CallMonitor) ConnectDur() func() time.Duration {
	if !c.m.started.IsBroken() {
		return func() time.Duration { return 0 }
	}
	return prometheus.NewTimer(c.m.durConnect.With(c.labels(nil))).ObserveDuration
}

func (c *CallMonitor) CallDur() func() time.Duration {
	return prometheus.NewTimer(c.m.durCall.With(c.labels(nil))).ObserveDuration
}
