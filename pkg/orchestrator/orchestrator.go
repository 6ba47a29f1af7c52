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
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/frostbyte73/core"
	"github.com/gammazero/deque"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/callorch/pkg/callbus"
	"github.com/livekit/callorch/pkg/config"
	"github.com/livekit/callorch/pkg/errors"
	"github.com/livekit/callorch/pkg/stats"
)

type Config struct {
	DefaultCaller string
	DefaultRegion string
	// RecentCalls is the number of ended action ids remembered for late callbacks and repeated end actions.
	RecentCalls int
}

func ConfigFrom(conf *config.Config) Config {
	return Config{
		DefaultCaller: conf.DefaultCaller,
		DefaultRegion: conf.DefaultRegion,
		RecentCalls:   conf.RecentCalls,
	}
}

type Option func(o *Orchestrator)

func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

func WithMonitor(mon *stats.Monitor) Option {
	return func(o *Orchestrator) {
		if mon != nil {
			o.mon = mon
		}
	}
}

func WithPushRegistrar(r PushRegistrar) Option {
	return func(o *Orchestrator) {
		o.push = r
	}
}

func WithQualityHandler(h func(QualityEvent)) Option {
	return func(o *Orchestrator) {
		o.onQuality = h
	}
}

type completion struct {
	id ActionID
	fn func(ctx context.Context, ok bool)
}

// Orchestrator owns all call and invite state. Backend callbacks, UI actions and push deliveries
// are funneled through Submit and handled one at a time by Run.
type Orchestrator struct {
	conf      Config
	log       logger.Logger
	mon       *stats.Monitor
	backend   Backend
	ui        CallUI
	pub       Publisher
	push      PushRegistrar
	onQuality func(QualityEvent)

	mu      sync.Mutex
	queue   deque.Deque[Event]
	stopped bool
	notify  chan struct{}
	closing core.Fuse
	done    core.Fuse

	// Owned by the loop.
	sessions map[ActionID]*callSession
	invites  map[ActionID]*callInvite
	activeID ActionID
	pending  *completion
	ended    *lru.Cache[ActionID, EndReason]
	speaker  *bool

	// Push token changes, registered in order by a single worker.
	tokMu   sync.Mutex
	tokens  deque.Deque[[]byte]
	tokBusy bool
}

func New(conf Config, backend Backend, ui CallUI, pub Publisher, opts ...Option) *Orchestrator {
	if conf.DefaultCaller == "" {
		conf.DefaultCaller = config.DefaultCaller
	}
	if conf.DefaultRegion == "" {
		conf.DefaultRegion = config.DefaultRegion
	}
	if conf.RecentCalls <= 0 {
		conf.RecentCalls = config.DefaultRecentCalls
	}
	ended, err := lru.New[ActionID, EndReason](conf.RecentCalls)
	if err != nil {
		panic(err) // size is always positive
	}
	mon, _ := stats.NewMonitor(&config.Config{})
	o := &Orchestrator{
		conf:     conf,
		log:      logger.GetLogger(),
		mon:      mon,
		backend:  backend,
		ui:       ui,
		pub:      pub,
		notify:   make(chan struct{}, 1),
		sessions: make(map[ActionID]*callSession),
		invites:  make(map[ActionID]*callInvite),
		ended:    ended,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit queues an event for the loop. It never blocks. Actions submitted after the loop
// stopped are failed right away.
func (o *Orchestrator) Submit(ev Event) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		o.reject(ev)
		return
	}
	o.queue.PushBack(ev)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) RequestStart(recipient string) {
	o.Submit(RequestStart{Recipient: recipient})
}

func (o *Orchestrator) RequestEnd() {
	o.Submit(RequestEnd{})
}

func (o *Orchestrator) SetAudioConfig(speakerEnabled bool) {
	o.Submit(SetAudioConfig{SpeakerEnabled: speakerEnabled})
}

// Follow relays call operations published on the bus until ctx is done or the orchestrator stops.
func (o *Orchestrator) Follow(ctx context.Context, bus *callbus.Bus) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.closing.Watch():
			cancel()
		case <-ctx.Done():
		}
	}()

	sub := bus.Operations()
	defer sub.Close()
	for {
		op, err := sub.Next(ctx)
		if err != nil {
			return nil
		}
		switch op.Kind {
		case callbus.OperationStart:
			o.RequestStart(op.Recipient)
		case callbus.OperationEnd:
			o.RequestEnd()
		}
	}
}

func (o *Orchestrator) Stop() {
	o.closing.Break()
}

// Done is closed once the loop has exited and every queued action was failed.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done.Watch()
}

func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.drain()
	o.log.Debugw("orchestrator loop started")
	for {
		ev, ok := o.next(ctx)
		if !ok {
			o.log.Debugw("orchestrator loop stopped")
			return nil
		}
		o.dispatch(ctx, ev)
	}
}

func (o *Orchestrator) next(ctx context.Context) (Event, bool) {
	for {
		if o.closing.IsBroken() {
			return nil, false
		}
		o.mu.Lock()
		if o.queue.Len() > 0 {
			ev := o.queue.PopFront()
			o.mu.Unlock()
			return ev, true
		}
		o.mu.Unlock()
		select {
		case <-o.notify:
		case <-o.closing.Watch():
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (o *Orchestrator) drain() {
	o.mu.Lock()
	o.stopped = true
	var left []Event
	for o.queue.Len() > 0 {
		left = append(left, o.queue.PopFront())
	}
	o.mu.Unlock()
	for _, ev := range left {
		o.reject(ev)
	}
	o.done.Break()
}

func (o *Orchestrator) reject(ev Event) {
	if ae, ok := ev.(actionEvent); ok {
		o.guard(ae).Fail(errors.ErrOrchestratorClosed)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, ev Event) {
	ctx, span := Tracer.Start(ctx, "Orchestrator."+ev.eventName())
	defer span.End()

	if ae, ok := ev.(actionEvent); ok {
		span.SetAttributes(attribute.String("actionID", string(ae.actionID())))
		g := o.guard(ae)
		o.handleAction(ctx, ae, g)
		if !g.resolved {
			o.log.Errorw("action left unresolved", errors.ErrActionUnresolved, "action", ae.actionKind(), "actionID", ae.actionID())
			g.Fail(errors.ErrActionUnresolved)
		}
		return
	}

	switch e := ev.(type) {
	case RequestStart:
		o.requestStart(ctx, e.Recipient)
	case RequestEnd:
		o.requestEnd(ctx)
	case SetAudioConfig:
		o.setAudioConfig(ctx, e.SpeakerEnabled)
	case ProviderReset:
		o.providerReset(ctx)
	case AudioSessionActivated:
		o.setAudioEnabled(ctx, true)
	case AudioSessionDeactivated:
		o.setAudioEnabled(ctx, false)
	case backendResult:
		o.onBackendResult(ctx, e)
	case BackendRinging:
		o.onRinging(e)
	case BackendConnecting:
		o.onConnecting(e)
	case BackendConnected:
		o.onConnected(ctx, e)
	case BackendReconnecting:
		o.onReconnecting(e)
	case BackendReconnected:
		o.onReconnected(e)
	case BackendFailedToConnect:
		o.onFailedToConnect(ctx, e)
	case BackendDisconnected:
		o.onDisconnected(ctx, e)
	case BackendQualityWarnings:
		o.onQualityWarnings(e)
	case InviteReceived:
		o.onInvite(ctx, e)
	case InviteCancelled:
		o.onInviteCancelled(ctx, e)
	case PushPayload:
		o.onPushPayload(ctx, e.Payload)
	case TokenUpdated:
		o.onToken(ctx, e.Token)
	case TokenInvalidated:
		o.onToken(ctx, nil)
	case snapshotRequest:
		e.reply <- o.snapshot()
	default:
		o.log.Warnw("unknown event", nil, "event", ev.eventName())
	}
}

func (o *Orchestrator) handleAction(ctx context.Context, ev actionEvent, a Action) {
	switch e := ev.(type) {
	case UIStart:
		o.onUIStart(ctx, e, a)
	case UIAnswer:
		o.onUIAnswer(ctx, e, a)
	case UIEnd:
		o.onUIEnd(ctx, e, a)
	case UIHold:
		o.onUIHold(ctx, e, a)
	case UIMute:
		o.onUIMute(ctx, e, a)
	}
}

// guardedAction resolves the wrapped action at most once and counts the outcome.
type guardedAction struct {
	a        Action
	kind     ActionKind
	mon      *stats.Monitor
	resolved bool
}

func (o *Orchestrator) guard(ev actionEvent) *guardedAction {
	return &guardedAction{a: ev.action(), kind: ev.actionKind(), mon: o.mon}
}

func (g *guardedAction) Fulfill() {
	if g.resolved {
		return
	}
	g.resolved = true
	g.mon.UIAction(g.kind.String(), true)
	if g.a != nil {
		g.a.Fulfill()
	}
}

func (g *guardedAction) Fail(err error) {
	if g.resolved {
		return
	}
	g.resolved = true
	g.mon.UIAction(g.kind.String(), false)
	if g.a != nil {
		g.a.Fail(err)
	}
}

func (o *Orchestrator) publishStatus(active, connecting bool) {
	o.pub.PublishStatus(callbus.Status{Active: active, Connecting: connecting})
}

type SessionInfo struct {
	ActionID      ActionID
	SessionID     string
	Direction     Direction
	Status        SessionStatus
	Recipient     string
	Muted         bool
	OnHold        bool
	UserInitiated bool
}

type InviteInfo struct {
	ActionID   ActionID
	InviteID   string
	Caller     string
	Verified   bool
	ReceivedAt time.Time
}

type Snapshot struct {
	Sessions []SessionInfo
	Invites  []InviteInfo
	ActiveID ActionID
	// PendingCompletion is set while a start or answer waits for the backend to connect.
	PendingCompletion bool
	// SpeakerApplied is the speaker value last applied to the backend, nil if none was.
	SpeakerApplied *bool
}

// Snapshot returns a copy of the orchestrator state, taken on the loop after every previously submitted event.
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	o.Submit(snapshotRequest{reply: reply})
	select {
	case s := <-reply:
		return s, nil
	case <-o.done.Watch():
		return Snapshot{}, errors.ErrOrchestratorClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (o *Orchestrator) snapshot() Snapshot {
	s := Snapshot{
		ActiveID:          o.activeID,
		PendingCompletion: o.pending != nil,
	}
	if o.speaker != nil {
		v := *o.speaker
		s.SpeakerApplied = &v
	}
	for _, c := range o.sessions {
		s.Sessions = append(s.Sessions, c.info())
	}
	for _, inv := range o.invites {
		s.Invites = append(s.Invites, inv.info())
	}
	slices.SortFunc(s.Sessions, func(a, b SessionInfo) int {
		return strings.Compare(string(a.ActionID), string(b.ActionID))
	})
	slices.SortFunc(s.Invites, func(a, b InviteInfo) int {
		return strings.Compare(string(a.ActionID), string(b.ActionID))
	})
	return s
}
