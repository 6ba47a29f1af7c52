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

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/frostbyte73/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/protocol/redis"

	"github.com/livekit/callorch/pkg/callbus"
	"github.com/livekit/callorch/pkg/config"
	"github.com/livekit/callorch/pkg/orchestrator"
	"github.com/livekit/callorch/pkg/push"
	"github.com/livekit/callorch/pkg/stats"
	"github.com/livekit/callorch/version"
)

// DrainTimeout bounds how long a graceful stop waits for the current call to end.
const DrainTimeout = 30 * time.Second

type Service struct {
	conf *config.Config
	log  logger.Logger
	mon  *stats.Monitor

	bus     *callbus.Bus
	quality *callbus.Stream[orchestrator.QualityEvent]
	orch    *orchestrator.Orchestrator
	gateway *push.Gateway
	rc      goredis.UniversalClient
	prom    *http.Server

	shutdown core.Fuse
}

func NewService(conf *config.Config, log logger.Logger, backend orchestrator.Backend, ui orchestrator.CallUI) (*Service, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	mon, err := stats.NewMonitor(conf)
	if err != nil {
		return nil, err
	}
	s := &Service{
		conf:    conf,
		log:     log,
		mon:     mon,
		bus:     callbus.New(),
		quality: callbus.NewStream(orchestrator.QualityEvent{}),
	}

	var store push.BindingStore = push.NewMemoryStore()
	if conf.Redis != nil && conf.Redis.Address != "" {
		rc, err := redis.GetRedisClient(conf.Redis)
		if err != nil {
			return nil, err
		}
		s.rc = rc
		store = push.NewRedisStore(rc, conf.Identity, conf.Push.BindingTTL)
	}
	reg := push.NewRegistrar(conf.Push, backend, store, log.WithName("push"), mon)

	s.orch = orchestrator.New(orchestrator.ConfigFrom(conf), backend, ui, callbus.NewPublisher(s.bus),
		orchestrator.WithLogger(log.WithName("orchestrator")),
		orchestrator.WithMonitor(mon),
		orchestrator.WithPushRegistrar(reg),
		orchestrator.WithQualityHandler(s.quality.Publish),
	)
	s.gateway = push.NewGateway(s.orch, log.WithName("push"))

	if conf.PrometheusPort > 0 {
		s.prom = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.PrometheusPort),
			Handler: promhttp.Handler(),
		}
	}
	return s, nil
}

// Bus is the channel the host app uses to drive calls and observe their state.
func (s *Service) Bus() *callbus.Bus {
	return s.bus
}

func (s *Service) Orchestrator() *orchestrator.Orchestrator {
	return s.orch
}

func (s *Service) Push() *push.Gateway {
	return s.gateway
}

// QualityEvents subscribes to call quality changes. The first value is a zero event.
func (s *Service) QualityEvents() *callbus.Subscription[orchestrator.QualityEvent] {
	return s.quality.Subscribe()
}

func (s *Service) CanAccept() bool {
	return s.mon.CanAccept()
}

// Stop shuts the service down. Without kill it first ends the current call and waits for it to go away.
func (s *Service) Stop(kill bool) {
	s.mon.Shutdown()
	if kill {
		s.shutdown.Break()
		return
	}
	go func() {
		defer s.shutdown.Break()
		ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
		defer cancel()

		sub := s.bus.Status()
		defer sub.Close()
		s.orch.RequestEnd()
		for {
			st, err := sub.Next(ctx)
			if err != nil {
				s.log.Infow("call did not end in time, shutting down anyway")
				return
			}
			if st.State() == callbus.CallIdle {
				return
			}
		}
	}()
}

func (s *Service) Run() error {
	s.log.Debugw("starting service", "version", version.Version, "identity", s.conf.Identity)
	if s.prom != nil {
		if err := s.mon.Start(s.conf); err != nil {
			return err
		}
	}
	defer func() {
		s.mon.Stop()
		if s.rc != nil {
			_ = s.rc.Close()
		}
	}()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return s.orch.Run(ctx)
	})
	g.Go(func() error {
		return s.orch.Follow(ctx, s.bus)
	})
	if s.prom != nil {
		g.Go(func() error {
			s.log.Infow("serving metrics", "addr", s.prom.Addr)
			if err := s.prom.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-s.shutdown.Watch():
		case <-ctx.Done():
		}
		s.log.Infow("shutting down")
		s.orch.Stop()
		if s.prom != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.prom.Shutdown(sctx)
		}
		return nil
	})

	s.log.Debugw("service ready")
	return g.Wait()
}
