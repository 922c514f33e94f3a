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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// State is the lifecycle phase of a [Server]. Transitions are strictly
// ordered: Idle → Binding → Listening → Draining → Closed. Closed is
// terminal.
type State int32

const (
	StateIdle State = iota
	StateBinding
	StateListening
	StateDraining
	StateClosed
)

// String renders the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBinding:
		return "binding"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Server owns the listening socket and routes requests to the registered
// services via their shared executor. It is produced by [Builder.Build] and
// is immutable apart from its lifecycle state.
type Server struct {
	rt       *Runtime
	grpcOpts []grpc.ServerOption
	bindings []binding

	state atomic.Int32
	addr  atomic.Value // net.Addr, set once listening
}

// State reports the current lifecycle phase.
func (s *Server) State() State { return State(s.state.Load()) }

// Addr reports the bound listener address once the server is listening, and
// nil before that. Useful when binding port 0.
func (s *Server) Addr() net.Addr {
	if addr, ok := s.addr.Load().(net.Addr); ok {
		return addr
	}
	return nil
}

// Run binds a listening socket on addr ("host:port"), serves requests until
// ctx is cancelled, then drains gracefully: the listener stops accepting,
// in-flight requests run to completion, and the socket is released.
//
// The final per-service executors are materialized here, once, against the
// shared runtime. A bind failure or fatal listener error terminates Run
// with that error; cancellation of ctx is the normal shutdown path and
// yields nil. Run may be called at most once.
func (s *Server) Run(ctx context.Context, addr string) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateBinding)) {
		return errors.New("grpcfx/server: Run called more than once")
	}

	gs := grpc.NewServer(s.grpcOpts...)
	for _, bind := range s.bindings {
		desc, impl := bind(s.rt)
		gs.RegisterService(desc, impl)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("grpcfx/server: bind %s: %w", addr, err)
	}
	s.addr.Store(lis.Addr())
	s.state.Store(int32(StateListening))
	s.rt.logger.LogAttrs(ctx, slog.LevelInfo, "gRPC server listening",
		slog.String("address", lis.Addr().String()),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		s.state.Store(int32(StateDraining))
		gs.GracefulStop()
		s.rt.drain()
		return nil
	})

	err = eg.Wait()
	s.state.Store(int32(StateClosed))
	s.rt.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "gRPC server stopped",
		slog.String("address", lis.Addr().String()),
	)
	return err
}
