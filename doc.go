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

// Package grpcfx is a thin, typed runtime for unary gRPC services. It layers
// three things on top of [google.golang.org/grpc]: status-coded error values
// that survive composition ([Error]), a per-request context-derivation
// pipeline with exact ordering and short-circuit semantics (see
// [github.com/pjscruggs/grpcfx/server]), and W3C Trace Context propagation
// wired into every unary call on both sides of the wire.
//
// The wire protocol itself is untouched: grpcfx only reads and writes the
// traceparent and tracestate metadata keys, and converts its own error
// values to transport status errors at the boundary.
//
// # Subpackages
//
//   - [github.com/pjscruggs/grpcfx/server] hosts the request executor,
//     context-transform chain, service builder, and listener lifecycle.
//   - [github.com/pjscruggs/grpcfx/client] builds per-method unary invokers
//     over a managed connection session, injecting outbound trace headers.
//   - cmd/protoc-gen-grpcfx generates the per-service glue (server
//     interfaces, registration helpers, typed clients) from proto service
//     descriptors.
//
// Importing this package installs a composite OpenTelemetry text map
// propagator (W3C Trace Context first, with one-way X-Cloud-Trace-Context
// ingress support) unless GRPCFX_DISABLE_PROPAGATOR_AUTOSET is set; see
// [EnsurePropagation].
package grpcfx
