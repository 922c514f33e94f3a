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
	"context"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// HandlerContext is the transport-supplied view of one request before any
// application-specific transformation: the full method name, the inbound
// metadata, and the peer that issued the call. Cancellation rides on the
// request's context.Context, not on this value.
//
// The same HandlerContext instance is handed to every step of the transform
// chain, so later steps can always read raw transport data (for example an
// authorization header) alongside previously derived values.
type HandlerContext struct {
	// Method is the full "service/Method" name, without a leading slash.
	Method string
	// Metadata holds the inbound request headers. May be nil.
	Metadata metadata.MD
	// Peer is the remote address, when the transport reports one.
	Peer net.Addr
}

// NewHandlerContext builds a HandlerContext from a request context as
// populated by the gRPC transport.
func NewHandlerContext(ctx context.Context, fullMethod string) *HandlerContext {
	h := &HandlerContext{Method: strings.TrimPrefix(fullMethod, "/")}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		h.Metadata = md
	}
	if p, ok := peer.FromContext(ctx); ok {
		h.Peer = p.Addr
	}
	return h
}

// Header returns the first inbound metadata value for the given
// (case-insensitive) key, or "" when absent.
func (h *HandlerContext) Header(key string) string {
	if h.Metadata == nil {
		return ""
	}
	if values := h.Metadata.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// peerAddress renders the peer for logging, or "" when unknown.
func (h *HandlerContext) peerAddress() string {
	if h.Peer == nil {
		return ""
	}
	return h.Peer.String()
}
