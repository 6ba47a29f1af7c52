// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"

	"github.com/livekit/psrpc"
)

var (
	ErrNoConfig           = psrpc.NewErrorf(psrpc.InvalidArgument, "missing config")
	ErrMissingCredentials = psrpc.NewErrorf(psrpc.Unauthenticated, "access token is required")

	// UI-protocol errors: the action references an id the orchestrator does not know.
	ErrUnknownAction = psrpc.NewErrorf(psrpc.NotFound, "no call or invite for action")
	ErrUnknownInvite = psrpc.NewErrorf(psrpc.NotFound, "no pending invite for action")
	ErrNotConnected  = psrpc.NewErrorf(psrpc.FailedPrecondition, "call has no backend session yet")
	ErrCallActive    = psrpc.NewErrorf(psrpc.FailedPrecondition, "another call is active")

	ErrCallFailed         = psrpc.NewErrorf(psrpc.Unavailable, "call failed to connect")
	ErrActionUnresolved   = psrpc.NewErrorf(psrpc.Internal, "action was not fulfilled by handler")
	ErrOrchestratorClosed = psrpc.NewErrorf(psrpc.Canceled, "orchestrator is closed")
)

func ErrCouldNotParseConfig(err error) psrpc.Error {
	return psrpc.NewErrorf(psrpc.InvalidArgument, "could not parse config: %v", err)
}

// Code returns the psrpc code of err, or psrpc.Unknown for plain errors.
func Code(err error) psrpc.ErrorCode {
	var e psrpc.Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return psrpc.Unknown
}
