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
	"sync"
)

// Publisher forwards orchestrator state onto the bus and remembers what it forwarded last.
type Publisher struct {
	bus *Bus

	mu         sync.Mutex
	lastStatus Status
	lastConfig AudioConfig
}

func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{
		bus:        bus,
		lastStatus: bus.LatestStatus(),
		lastConfig: bus.LatestConfiguration(),
	}
}

func (p *Publisher) PublishStatus(st Status) {
	p.mu.Lock()
	p.lastStatus = st
	p.mu.Unlock()
	p.bus.PublishStatus(st.Active, st.Connecting)
}

func (p *Publisher) PublishConfiguration(cfg AudioConfig) {
	p.mu.Lock()
	p.lastConfig = cfg
	p.mu.Unlock()
	p.bus.PublishConfiguration(cfg)
}

func (p *Publisher) LastStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus
}

func (p *Publisher) LastConfiguration() AudioConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastConfig
}
