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
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Binding records which token the backend knows about and when it was last confirmed.
type Binding struct {
	Token string
	Date  time.Time
}

type BindingStore interface {
	Get(ctx context.Context) (Binding, bool, error)
	Put(ctx context.Context, b Binding) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu sync.Mutex
	b  *Binding
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (Binding, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil {
		return Binding{}, false, nil
	}
	return *s.b, true, nil
}

func (s *MemoryStore) Put(_ context.Context, b Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = &b
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = nil
	return nil
}

const redisKeyPrefix = "callorch:push-binding:"

// RedisStore keeps the binding in a redis hash that expires with the registration.
type RedisStore struct {
	rc  redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisStore(rc redis.UniversalClient, identity string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rc:  rc,
		key: redisKeyPrefix + identity,
		ttl: ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context) (Binding, bool, error) {
	vals, err := s.rc.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Binding{}, false, errors.Wrap(err, "could not read push binding")
	}
	if len(vals) == 0 {
		return Binding{}, false, nil
	}
	sec, err := strconv.ParseInt(vals["date"], 10, 64)
	if err != nil {
		return Binding{}, false, errors.Wrapf(err, "bad push binding date %q", vals["date"])
	}
	return Binding{Token: vals["token"], Date: time.Unix(sec, 0)}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, b Binding) error {
	pipe := s.rc.TxPipeline()
	pipe.HSet(ctx, s.key, "token", b.Token, "date", b.Date.Unix())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "could not store push binding")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rc.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, "could not clear push binding")
	}
	return nil
}
