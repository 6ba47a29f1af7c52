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

// Bus carries call operation requests, audio configuration and call status to any number of observers.
// Every stream replays its latest value to new subscribers. Publishing never fails or blocks.
type Bus struct {
	operations    *Stream[Operation]
	configuration *Stream[AudioConfig]
	status        *Stream[Status]
}

func New() *Bus {
	return &Bus{
		operations:    NewStream(Operation{}),
		configuration: NewStream(AudioConfig{SpeakerEnabled: false}),
		status:        NewStream(Status{}),
	}
}

func (b *Bus) PublishOperation(op Operation) {
	b.operations.Publish(op)
}

func (b *Bus) PublishConfiguration(cfg AudioConfig) {
	b.configuration.Publish(cfg)
}

func (b *Bus) PublishStatus(active, connecting bool) {
	b.status.Publish(Status{Active: active, Connecting: connecting})
}

func (b *Bus) Operations() *Subscription[Operation] {
	return b.operations.Subscribe()
}

func (b *Bus) Configuration() *Subscription[AudioConfig] {
	return b.configuration.Subscribe()
}

func (b *Bus) Status() *Subscription[Status] {
	return b.status.Subscribe()
}

func (b *Bus) LatestOperation() Operation {
	return b.operations.Latest()
}

func (b *Bus) LatestConfiguration() AudioConfig {
	return b.configuration.Latest()
}

func (b *Bus) LatestStatus() Status {
	return b.status.Latest()
}
