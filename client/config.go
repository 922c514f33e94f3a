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

package client

import (
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Config is the immutable per-service client configuration. It is provided
// once and shared by every request issued through a client bound to that
// service; generated clients keep it by value.
type Config struct {
	// Target is the connection target in gRPC name-resolution syntax
	// (e.g. "dns:///greeter.internal:443" or "localhost:8080").
	Target string

	// DefaultTimeout bounds calls whose caller set no deadline of their
	// own. Zero means no default deadline is applied.
	DefaultTimeout time.Duration

	// Compressor names a registered message compressor (e.g. "gzip") used
	// for outgoing requests. Empty disables compression.
	Compressor string

	// UserAgent overrides the user-agent string sent on the connection.
	// Empty selects the grpcfx default.
	UserAgent string

	// DialOptions are appended to the defaults when dialing a Session.
	// Supplying credentials here overrides the insecure default.
	DialOptions []grpc.DialOption

	// TracerProvider overrides the tracer used for client spans. Nil
	// selects the global provider.
	TracerProvider trace.TracerProvider

	// Propagator overrides the text map propagator used to inject outbound
	// trace headers. Nil selects the global propagator.
	Propagator propagation.TextMapPropagator
}
