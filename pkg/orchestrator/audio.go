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

package orchestrator

import (
	"context"

	"github.com/livekit/callorch/pkg/callbus"
)

// setAudioConfig always publishes, but only touches the backend when the value changes.
func (o *Orchestrator) setAudioConfig(ctx context.Context, speaker bool) {
	o.pub.PublishConfiguration(callbus.AudioConfig{SpeakerEnabled: speaker})
	if o.speaker != nil && *o.speaker == speaker {
		o.log.Debugw("speaker already applied", "speaker", speaker)
		return
	}
	if err := o.backend.SetSpeaker(ctx, speaker); err != nil {
		o.log.Warnw("could not route audio", err, "speaker", speaker)
		return
	}
	o.speaker = &speaker
	o.log.Debugw("speaker applied", "speaker", speaker)
}

func (o *Orchestrator) setAudioEnabled(ctx context.Context, enabled bool) {
	if err := o.backend.SetAudioEnabled(ctx, enabled); err != nil {
		o.log.Warnw("could not switch audio", err, "enabled", enabled)
		return
	}
	o.log.Debugw("audio switched", "enabled", enabled)
}
