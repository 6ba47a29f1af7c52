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
	"encoding/hex"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/callorch/pkg/config"
	"github.com/livekit/callorch/pkg/stats"
)

type Registerer interface {
	RegisterForPush(ctx context.Context, token []byte) error
}

// Registrar registers push tokens with the backend, retrying a bounded number of times.
// Registrations are skipped while the stored binding for the same token is younger than half its TTL.
type Registrar struct {
	conf    config.PushConfig
	backend Registerer
	store   BindingStore
	log     logger.Logger
	mon     *stats.Monitor
	now     func() time.Time

	mu sync.Mutex
}

func NewRegistrar(conf config.PushConfig, backend Registerer, store BindingStore, log logger.Logger, mon *stats.Monitor) *Registrar {
	if log == nil {
		log = logger.GetLogger()
	}
	if mon == nil {
		mon, _ = stats.NewMonitor(&config.Config{})
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if conf.MaxAttempts <= 0 {
		conf.MaxAttempts = 1
	}
	return &Registrar{
		conf:    conf,
		backend: backend,
		store:   store,
		log:     log,
		mon:     mon,
		now:     time.Now,
	}
}

func (r *Registrar) Register(ctx context.Context, token []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(token) == 0 {
		r.log.Infow("push token invalidated")
		r.mon.PushRegistration("invalidated")
		if err := r.store.Clear(ctx); err != nil {
			r.log.Warnw("could not clear push binding", err)
			return err
		}
		return nil
	}

	tok := hex.EncodeToString(token)
	if b, ok, err := r.store.Get(ctx); err != nil {
		r.log.Warnw("could not read push binding", err)
	} else if ok && b.Token == tok && r.now().Sub(b.Date) < r.conf.BindingTTL/2 {
		r.log.Debugw("push binding still fresh, skipping registration", "boundAt", b.Date)
		r.mon.PushRegistration("skipped")
		return nil
	}

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return r.backend.RegisterForPush(ctx, token)
	}, r.backOff(ctx), func(err error, next time.Duration) {
		r.log.Infow("push registration failed, retrying", "error", err, "attempt", attempt, "retryIn", next)
	})
	if err != nil {
		r.log.Warnw("push registration failed", err, "attempts", attempt)
		r.mon.PushRegistration("failed")
		return err
	}
	r.log.Infow("registered for push", "attempts", attempt)
	r.mon.PushRegistration("ok")

	if err = r.store.Put(ctx, Binding{Token: tok, Date: r.now()}); err != nil {
		r.log.Warnw("could not store push binding", err)
	}
	return nil
}

// Touch refreshes the binding date, if there is a binding.
func (r *Registrar) Touch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok, err := r.store.Get(ctx)
	if err != nil || !ok {
		return err
	}
	b.Date = r.now()
	return r.store.Put(ctx, b)
}

func (r *Registrar) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.conf.InitialInterval > 0 {
		b.InitialInterval = r.conf.InitialInterval
	}
	if r.conf.MaxInterval > 0 {
		b.MaxInterval = r.conf.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.conf.MaxAttempts-1)), ctx)
}
