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
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	"github.com/livekit/protocol/redis"
)

var redisLast uint32

// runRedis starts a throwaway redis container. The test is skipped when docker is not reachable.
func runRedis(t testing.TB) *redis.RedisConfig {
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skip("docker not available:", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skip("docker not available:", err)
	}

	name := fmt.Sprintf("callorch-redis-%d", atomic.AddUint32(&redisLast, 1))
	if c, ok := pool.ContainerByName(name); ok {
		t.Log("Redis container already exists - stopping and removing", name)
		_ = pool.Purge(c)
	}
	c, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       name,
		Repository: "redis", Tag: "latest",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(c)
	})

	addr := c.GetHostPort("6379/tcp")
	err = pool.Retry(func() error {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	require.NoError(t, err)
	t.Log("Redis running on", addr)
	return &redis.RedisConfig{Address: addr}
}

func TestRedisStore(t *testing.T) {
	conf := runRedis(t)
	rc, err := redis.GetRedisClient(conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Close()
	})

	ctx := context.Background()
	store := NewRedisStore(rc, "VC_test", time.Hour)

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	date := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Put(ctx, Binding{Token: "abcd", Date: date}))

	b, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abcd", b.Token)
	require.True(t, date.Equal(b.Date))

	ttl, err := rc.TTL(ctx, redisKeyPrefix+"VC_test").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)

	// Another identity does not see it.
	_, ok, err = NewRedisStore(rc, "VC_other", time.Hour).Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistrarWithRedis(t *testing.T) {
	conf := runRedis(t)
	rc, err := redis.GetRedisClient(conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Close()
	})

	ctx := context.Background()
	b := &fakeBackend{}
	r := NewRegistrar(testPushConfig(), b, NewRedisStore(rc, "VC_reg", time.Hour), nil, nil)
	require.NoError(t, r.Register(ctx, []byte{1, 2}))

	// A restarted client shares the binding and skips the registration.
	r2 := NewRegistrar(testPushConfig(), b, NewRedisStore(rc, "VC_reg", time.Hour), nil, nil)
	require.NoError(t, r2.Register(ctx, []byte{1, 2}))
	require.Equal(t, 1, b.calls())
}
