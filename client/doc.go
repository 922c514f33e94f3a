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

// Package client issues typed unary gRPC requests with outbound trace
// propagation. Generated clients hold an immutable [Config] plus any
// [grpc.ClientConnInterface] — usually a [Session], the managed connection
// resource returned by [Dial] — and funnel every method through [Invoke].
//
// Invoke wraps each call in a client span named
// "GrpcClient.makeUnaryRequest(service/Method)" and, when a span is active,
// injects W3C traceparent/tracestate headers into a copy of the caller's
// outgoing metadata. Only unary methods exist here; streaming is rejected
// by the code generator, not silently dropped.
package client
