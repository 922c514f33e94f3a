// Copyright 2025 Patrick J. Scruggs
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

package grpcfx

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a status-coded failure value produced by application logic and
// carried unchanged through the context-transform chain, the executor, and
// the transport boundary.
//
// An Error is immutable by convention: every "modifying" operation returns a
// new value. Code and Message cross the wire; Description is a freely
// rewritable local annotation dropped at the transport boundary; Cause is
// preserved through every transformation but never serialized.
type Error struct {
	// Code is the gRPC status code reported to the peer.
	Code codes.Code
	// Message is the human-readable failure message reported to the peer.
	Message string
	// Description optionally adds local context as the error crosses
	// logical boundaries. It is never sent over the wire.
	Description string
	// Cause optionally carries the originating error for local logging
	// and errors.Is/As inspection. It is never sent over the wire.
	Cause error
}

// New creates an Error with the given code and message.
func New(code codes.Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with the given code and a formatted message.
func Newf(code codes.Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// From normalizes an arbitrary caught value into an Error.
//
// If cause already carries a gRPC status (including another *Error), that
// status's code and message win and the code argument is ignored. If cause
// is a plain error, its Error() text becomes the message and the original
// value is preserved as Cause. Any other value is stringified into the
// message.
func From(code codes.Code, cause any) *Error {
	switch c := cause.(type) {
	case *Error:
		return c
	case error:
		if st, ok := status.FromError(c); ok {
			return &Error{Code: st.Code(), Message: st.Message(), Cause: c}
		}
		return &Error{Code: code, Message: c.Error(), Cause: c}
	default:
		return &Error{Code: code, Message: fmt.Sprintf("%v", cause)}
	}
}

// WithDescription returns a copy of e with Description set to text. Code,
// Message, and Cause are unchanged; applying it again keeps only the latest
// description.
func (e *Error) WithDescription(text string) *Error {
	clone := *e
	clone.Description = text
	return &clone
}

// Error renders the value as "[Code] message", with the description
// appended in parentheses when present.
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes Cause to the errors package.
func (e *Error) Unwrap() error { return e.Cause }

// GRPCStatus converts the Error to its transport representation. Description
// has no downstream equivalent and is intentionally dropped. The presence of
// this method means [status.FromError] recognizes *Error directly, so a
// handler may return one unmodified.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}
