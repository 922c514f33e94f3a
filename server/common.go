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

package server

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Attribute keys used to structure RPC log entries. The same schema is used
// for start and finish records so traffic can be queried consistently.
const (
	grpcServiceKey  = "grpc.service"  // Service name from the full method path (e.g., "myapp.UserService")
	grpcMethodKey   = "grpc.method"   // Method name from the full path (e.g., "GetUser")
	grpcCodeKey     = "grpc.code"     // Final status code as a string (e.g., "OK", "NotFound")
	grpcDurationKey = "grpc.duration" // Total call duration as a time.Duration
	peerAddressKey  = "peer.address"  // Remote endpoint address (IP:port or UDS path)

	panicValueKey = "panic.value"       // The value recovered from a handler panic
	panicStackKey = "panic.stack_trace" // Formatted stack trace from the panic site
)

// splitMethodName parses a full method name into service and method
// components. Full method names are formatted as "service/Method", with or
// without a leading slash.
func splitMethodName(fullMethodName string) (service, method string) {
	fullMethodName = strings.TrimPrefix(fullMethodName, "/")
	service = path.Dir(fullMethodName)
	method = path.Base(fullMethodName)

	// Handle root-level methods (no service component)
	if service == "." || service == "" {
		service = "unknown"
	}
	return service, method
}

// assembleFinishAttrs creates the standard attribute set for RPC completion
// logs: duration, final status code, peer address (when known), and the
// error itself.
func assembleFinishAttrs(duration time.Duration, err error, peerAddr string) []slog.Attr {
	grpcStatus := status.Code(err)
	attrs := []slog.Attr{
		slog.Duration(grpcDurationKey, duration),
		slog.String(grpcCodeKey, grpcStatus.String()),
	}
	if peerAddr != "" {
		attrs = append(attrs, slog.String(peerAddressKey, peerAddr))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	return attrs
}

// metadataCarrier adapts gRPC metadata to the OpenTelemetry text map carrier
// interface so propagators can read and write trace headers directly.
type metadataCarrier struct {
	md metadata.MD
}

var _ propagation.TextMapCarrier = metadataCarrier{}

// Get returns the first value associated with the (case-insensitive) key.
func (mc metadataCarrier) Get(key string) string {
	if values := mc.md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// Set stores the key-value pair, replacing any existing values.
func (mc metadataCarrier) Set(key, value string) {
	mc.md.Set(key, value)
}

// Keys lists the keys stored in the carrier.
func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc.md))
	for k := range mc.md {
		keys = append(keys, k)
	}
	return keys
}
