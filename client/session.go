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
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pjscruggs/grpcfx"
)

// Session is the managed connection resource behind one or more clients. It
// is exclusively owned by the scope that dialed it: hang Close on that
// scope (typically with defer) so teardown aborts any still-open streams
// instead of waiting on a slow connection shutdown.
type Session struct {
	conn *grpc.ClientConn
}

var _ grpc.ClientConnInterface = (*Session)(nil)

// Dial creates a Session for cfg.Target. The connection is established
// lazily by the transport; Dial itself does not block on readiness.
//
// Transport security defaults to insecure credentials for in-cluster use;
// pass credentials via cfg.DialOptions to override.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = grpcfx.UserAgent
	}
	opts = append(opts, grpc.WithUserAgent(userAgent))
	if cfg.Compressor != "" {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.UseCompressor(cfg.Compressor)))
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcfx/client: dial %s: %w", cfg.Target, err)
	}
	return &Session{conn: conn}, nil
}

// Invoke implements grpc.ClientConnInterface.
func (s *Session) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	return s.conn.Invoke(ctx, method, args, reply, opts...)
}

// NewStream implements grpc.ClientConnInterface. Streaming is unsupported
// by the grpcfx surface but the transport method is delegated for
// completeness.
func (s *Session) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return s.conn.NewStream(ctx, desc, method, opts...)
}

// Close releases the session, aborting any in-flight calls that still hold
// it. It is safe to call exactly once per Dial.
func (s *Session) Close() error { return s.conn.Close() }
