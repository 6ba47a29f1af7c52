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
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/protocol/redis"
	"github.com/livekit/protocol/utils"

	"github.com/livekit/callorch/pkg/errors"
)

const (
	DefaultCaller      = "Voice Bot"
	DefaultRegion      = "US"
	DefaultRecentCalls = 64

	// Backend registrations live for a year; renewing at half of that keeps them fresh.
	DefaultBindingTTL = 365 * 24 * time.Hour
)

type PushConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	BindingTTL      time.Duration `yaml:"binding_ttl"`
}

type Config struct {
	Identity    string `yaml:"identity"`     // (env VOICE_IDENTITY)
	AccessToken string `yaml:"access_token"` // required (env VOICE_ACCESS_TOKEN)

	DefaultCaller  string `yaml:"default_caller"`
	DefaultRegion  string `yaml:"default_region"`
	RecentCalls    int    `yaml:"recent_calls"`
	PrometheusPort int    `yaml:"prometheus_port"`
	JaegerURL      string `yaml:"jaeger_url"` // for tracing

	Redis   *redis.RedisConfig `yaml:"redis"` // optional, binding dates are kept in memory without it
	Push    PushConfig         `yaml:"push"`
	Logging logger.Config      `yaml:"logging"`

	// internal
	ServiceName string `yaml:"-"`
	NodeID      string // Do not provide, will be overwritten
}

func NewConfig(confString string) (*Config, error) {
	conf := &Config{
		Identity:    os.Getenv("VOICE_IDENTITY"),
		AccessToken: os.Getenv("VOICE_ACCESS_TOKEN"),
		ServiceName: "voice-client",
	}
	if confString != "" {
		if err := yaml.Unmarshal([]byte(confString), conf); err != nil {
			return nil, errors.ErrCouldNotParseConfig(err)
		}
	}
	if conf.AccessToken == "" {
		return nil, errors.ErrMissingCredentials
	}
	conf.setDefaults()
	return conf, nil
}

func (conf *Config) setDefaults() {
	if conf.DefaultCaller == "" {
		conf.DefaultCaller = DefaultCaller
	}
	if conf.DefaultRegion == "" {
		conf.DefaultRegion = DefaultRegion
	}
	if conf.RecentCalls <= 0 {
		conf.RecentCalls = DefaultRecentCalls
	}
	if conf.Push.MaxAttempts <= 0 {
		conf.Push.MaxAttempts = 3
	}
	if conf.Push.InitialInterval <= 0 {
		conf.Push.InitialInterval = 500 * time.Millisecond
	}
	if conf.Push.MaxInterval <= 0 {
		conf.Push.MaxInterval = 10 * time.Second
	}
	if conf.Push.BindingTTL <= 0 {
		conf.Push.BindingTTL = DefaultBindingTTL
	}
}

func (conf *Config) Init() error {
	conf.NodeID = utils.NewGuid("VC_")

	if err := conf.InitLogger(); err != nil {
		return err
	}

	return nil
}

func (c *Config) InitLogger(values ...interface{}) error {
	zl, err := logger.NewZapLogger(&c.Logging)
	if err != nil {
		return err
	}

	values = append(c.GetLoggerValues(), values...)
	l := zl.WithValues(values...)
	logger.SetLogger(l, c.ServiceName)

	return nil
}

// To use with zap logger
func (c *Config) GetLoggerValues() []interface{} {
	values := []interface{}{"nodeID", c.NodeID}
	if c.Identity != "" {
		values = append(values, "identity", c.Identity)
	}
	return values
}
