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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/callorch/pkg/errors"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("VOICE_ACCESS_TOKEN", "")
	t.Setenv("VOICE_IDENTITY", "")

	t.Run("missing token", func(t *testing.T) {
		_, err := NewConfig("identity: alice\n")
		require.ErrorIs(t, err, errors.ErrMissingCredentials)
	})

	t.Run("token from env", func(t *testing.T) {
		t.Setenv("VOICE_ACCESS_TOKEN", "tok")
		conf, err := NewConfig("")
		require.NoError(t, err)
		require.Equal(t, "tok", conf.AccessToken)
	})

	t.Run("defaults", func(t *testing.T) {
		conf, err := NewConfig("access_token: tok\n")
		require.NoError(t, err)
		require.Equal(t, DefaultCaller, conf.DefaultCaller)
		require.Equal(t, DefaultRegion, conf.DefaultRegion)
		require.Equal(t, DefaultRecentCalls, conf.RecentCalls)
		require.Equal(t, 3, conf.Push.MaxAttempts)
		require.Equal(t, DefaultBindingTTL, conf.Push.BindingTTL)
		require.Nil(t, conf.Redis)
	})

	t.Run("overrides", func(t *testing.T) {
		conf, err := NewConfig(`
access_token: tok
identity: alice
default_caller: Support
recent_calls: 8
push:
  max_attempts: 5
  initial_interval: 1s
`)
		require.NoError(t, err)
		require.Equal(t, "alice", conf.Identity)
		require.Equal(t, "Support", conf.DefaultCaller)
		require.Equal(t, 8, conf.RecentCalls)
		require.Equal(t, 5, conf.Push.MaxAttempts)
		require.Equal(t, time.Second, conf.Push.InitialInterval)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := NewConfig("access_token: [")
		require.Error(t, err)
		require.Equal(t, errors.Code(err), errors.Code(errors.ErrNoConfig))
	})
}
