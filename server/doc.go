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

// Package server hosts the request-execution side of grpcfx: the concurrency
// runtime handle, the per-request context-transform chain, the unary
// executor, and the service builder with its listener lifecycle.
//
// Every unary call flows through one path. The transport hands the raw
// request to generated glue, which calls [Unary] on the service's
// [Executor]. The executor builds a [HandlerContext] from inbound metadata,
// extracts any propagated W3C trace parent, runs the registered
// [Transform] chain exactly once (strictly in registration order, stopping
// at the first failure), then runs the handler program inside the
// [Runtime] with the request's cancellation signal wired in. Outcomes map
// exhaustively onto transport status errors; see [Unary].
//
// Services are accumulated on a [Builder], which enforces tag uniqueness at
// composition time and shares one transform chain across all of them.
// [Builder.Build] produces a [Server] whose Run method owns the listening
// socket through the Idle → Binding → Listening → Draining → Closed
// lifecycle.
package server
