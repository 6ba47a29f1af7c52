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
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const clientPrefix = "client:"

// normalizeRecipient formats phone numbers as E.164. Client identities and anything else pass through.
func (o *Orchestrator) normalizeRecipient(to string) string {
	to = strings.TrimSpace(to)
	if to == "" || strings.HasPrefix(to, clientPrefix) {
		return to
	}
	num, err := phonenumbers.Parse(to, o.conf.DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return to
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func callerDisplay(from, def string) string {
	from = strings.TrimPrefix(strings.TrimSpace(from), clientPrefix)
	if from == "" {
		return def
	}
	return from
}
