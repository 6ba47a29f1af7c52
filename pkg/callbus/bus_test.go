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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusInitialValues(t *testing.T) {
	b := New()

	st := b.Status()
	defer st.Close()
	v, ok := st.TryNext()
	require.True(t, ok)
	require.Equal(t, Status{}, v)

	cfg := b.Configuration()
	defer cfg.Close()
	c, ok := cfg.TryNext()
	require.True(t, ok)
	require.False(t, c.SpeakerEnabled)

	ops := b.Operations()
	defer ops.Close()
	op, ok := ops.TryNext()
	require.True(t, ok)
	require.Equal(t, OperationNone, op.Kind)
}

func TestBusReplayLatest(t *testing.T) {
	b := New()
	b.PublishStatus(false, true)
	b.PublishStatus(true, false)

	// Late subscriber skips the intermediate value.
	late := b.Status()
	defer late.Close()
	require.Equal(t, []Status{{Active: true}}, late.Drain())

	b.PublishStatus(false, false)
	require.Equal(t, []Status{{}}, late.Drain())
}

func TestBusFanOutInOrder(t *testing.T) {
	b := New()
	s1 := b.Configuration()
	defer s1.Close()
	s2 := b.Configuration()
	defer s2.Close()

	b.PublishConfiguration(AudioConfig{SpeakerEnabled: true})
	b.PublishConfiguration(AudioConfig{SpeakerEnabled: true})
	b.PublishConfiguration(AudioConfig{SpeakerEnabled: false})

	exp := []AudioConfig{{false}, {true}, {true}, {false}}
	require.Equal(t, exp, s1.Drain())
	require.Equal(t, exp, s2.Drain())
}

func TestSubscriptionNext(t *testing.T) {
	b := New()
	sub := b.Operations()
	_ = sub.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.PublishOperation(StartCall("bob"))
	}()
	op, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StartCall("bob"), op)
	wg.Wait()

	sub.Close()
	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, b.operations.subscribers())

	// Publishing after close does not reach the closed subscription.
	b.PublishOperation(EndCall())
	_, ok := sub.TryNext()
	require.False(t, ok)
}

func TestSubscriptionNextContext(t *testing.T) {
	b := New()
	sub := b.Status()
	defer sub.Close()
	_ = sub.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sub.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusState(t *testing.T) {
	cases := []struct {
		name string
		st   Status
		exp  CallState
	}{
		{"idle", Status{}, CallIdle},
		{"connecting", Status{Connecting: true}, CallConnecting},
		{"active", Status{Active: true}, CallActive},
		{"both", Status{Active: true, Connecting: true}, CallConnecting},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.exp, c.st.State())
		})
	}
}

func TestPublisher(t *testing.T) {
	b := New()
	p := NewPublisher(b)
	sub := b.Status()
	defer sub.Close()

	p.PublishStatus(Status{Active: true})
	require.Equal(t, Status{Active: true}, p.LastStatus())
	require.Equal(t, Status{Active: true}, b.LatestStatus())
	require.Equal(t, []Status{{}, {Active: true}}, sub.Drain())

	p.PublishConfiguration(AudioConfig{SpeakerEnabled: true})
	require.True(t, p.LastConfiguration().SpeakerEnabled)
	require.True(t, b.LatestConfiguration().SpeakerEnabled)
}
