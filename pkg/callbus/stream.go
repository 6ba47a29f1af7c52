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
	"context"
	"slices"
	"sync"

	"github.com/frostbyte73/core"
	"github.com/gammazero/deque"
)

// Stream is a replay-latest broadcast of a single value type.
// A new subscriber first receives the latest value, then every value published after it subscribed, in order.
type Stream[T any] struct {
	mu     sync.Mutex
	latest T
	subs   []*Subscription[T]
}

func NewStream[T any](initial T) *Stream[T] {
	return &Stream[T]{latest: initial}
}

func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = v
	for _, sub := range s.subs {
		sub.push(v)
	}
}

func (s *Stream[T]) Latest() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Stream[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		s:      s,
		notify: make(chan struct{}, 1),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.push(s.latest)
	s.subs = append(s.subs, sub)
	return sub
}

func (s *Stream[T]) remove(sub *Subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = slices.DeleteFunc(s.subs, func(v *Subscription[T]) bool {
		return v == sub
	})
}

func (s *Stream[T]) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscription buffers values for one consumer. Publishers never block on it.
type Subscription[T any] struct {
	s      *Stream[T]
	mu     sync.Mutex
	queue  deque.Deque[T]
	notify chan struct{}
	closed core.Fuse
}

func (sub *Subscription[T]) push(v T) {
	if sub.closed.IsBroken() {
		return
	}
	sub.mu.Lock()
	sub.queue.PushBack(v)
	sub.mu.Unlock()
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// TryNext returns the oldest buffered value, if any.
func (sub *Subscription[T]) TryNext() (T, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.queue.Len() == 0 {
		var zero T
		return zero, false
	}
	return sub.queue.PopFront(), true
}

// Next blocks until a value is available, the context is done or the subscription is closed.
func (sub *Subscription[T]) Next(ctx context.Context) (T, error) {
	for {
		if v, ok := sub.TryNext(); ok {
			return v, nil
		}
		select {
		case <-sub.notify:
		case <-sub.closed.Watch():
			var zero T
			return zero, context.Canceled
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Drain returns all buffered values.
func (sub *Subscription[T]) Drain() []T {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	out := make([]T, 0, sub.queue.Len())
	for sub.queue.Len() > 0 {
		out = append(out, sub.queue.PopFront())
	}
	return out
}

func (sub *Subscription[T]) Close() {
	sub.closed.Once(func() {
		sub.s.remove(sub)
		sub.mu.Lock()
		sub.queue.Clear()
		sub.mu.Unlock()
	})
}
