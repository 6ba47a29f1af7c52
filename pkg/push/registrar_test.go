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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/config"
)

type fakeBackend struct {
	mu       sync.Mutex
	tokens   [][]byte
	failures int
}

func (b *fakeBackend) RegisterForPush(_ context.Context, token []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	if b.failures > 0 {
		b.failures--
		return errors.New("service unavailable")
	}
	return nil
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

func testPushConfig() config.PushConfig {
	return config.PushConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		BindingTTL:      time.Hour,
	}
}

func newTestRegistrar(backend Registerer, store BindingStore, now *time.Time) *Registrar {
	r := NewRegistrar(testPushConfig(), backend, store, nil, nil)
	r.now = func() time.Time { return *now }
	return r
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	t.Run("stores binding", func(t *testing.T) {
		b := &fakeBackend{}
		store := NewMemoryStore()
		r := newTestRegistrar(b, store, &now)

		require.NoError(t, r.Register(ctx, []byte{0xab, 0xcd}))
		require.Equal(t, 1, b.calls())

		bind, ok, err := store.Get(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, Binding{Token: "abcd", Date: now}, bind)
	})

	t.Run("retries", func(t *testing.T) {
		b := &fakeBackend{failures: 2}
		store := NewMemoryStore()
		r := newTestRegistrar(b, store, &now)

		require.NoError(t, r.Register(ctx, []byte{1}))
		require.Equal(t, 3, b.calls())
		_, ok, _ := store.Get(ctx)
		require.True(t, ok)
	})

	t.Run("gives up", func(t *testing.T) {
		b := &fakeBackend{failures: 10}
		store := NewMemoryStore()
		r := newTestRegistrar(b, store, &now)

		require.Error(t, r.Register(ctx, []byte{1}))
		require.Equal(t, 3, b.calls())
		_, ok, _ := store.Get(ctx)
		require.False(t, ok)
	})

	t.Run("canceled", func(t *testing.T) {
		b := &fakeBackend{failures: 10}
		r := NewRegistrar(config.PushConfig{MaxAttempts: 5, InitialInterval: time.Hour}, b, nil, nil, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.Error(t, r.Register(cctx, []byte{1}))
		require.LessOrEqual(t, b.calls(), 1)
	})

	t.Run("skips fresh binding", func(t *testing.T) {
		b := &fakeBackend{}
		clock := now
		r := newTestRegistrar(b, NewMemoryStore(), &clock)

		require.NoError(t, r.Register(ctx, []byte{1}))
		clock = clock.Add(10 * time.Minute)
		require.NoError(t, r.Register(ctx, []byte{1}))
		require.Equal(t, 1, b.calls())

		// A different token always registers.
		require.NoError(t, r.Register(ctx, []byte{2}))
		require.Equal(t, 2, b.calls())

		// Past half the TTL the same token registers again.
		clock = clock.Add(31 * time.Minute)
		require.NoError(t, r.Register(ctx, []byte{2}))
		require.Equal(t, 3, b.calls())
	})

	t.Run("invalidation", func(t *testing.T) {
		b := &fakeBackend{}
		store := NewMemoryStore()
		r := newTestRegistrar(b, store, &now)

		require.NoError(t, r.Register(ctx, []byte{1}))
		require.NoError(t, r.Register(ctx, nil))
		require.Equal(t, 1, b.calls())
		_, ok, err := store.Get(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestTouch(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore()
	r := newTestRegistrar(&fakeBackend{}, store, &clock)

	// Nothing to refresh yet.
	require.NoError(t, r.Touch(ctx))
	_, ok, _ := store.Get(ctx)
	require.False(t, ok)

	require.NoError(t, r.Register(ctx, []byte{7}))
	clock = clock.Add(time.Minute)
	require.NoError(t, r.Touch(ctx))

	bind, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Binding{Token: "07", Date: clock}, bind)
}
