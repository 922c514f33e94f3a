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
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/pjscruggs/grpcfx/server"

// Buffer size for stack trace capture during panic recovery.
// 8KB is typically sufficient for capturing the relevant part of deep stacks.
const panicStackBufSize = 8192

// Runtime is the process-wide execution handle shared read-only by every
// concurrently executing request. It is constructed once at server startup
// and passed by reference into each request's executor; it holds no
// per-request state.
//
// The in-flight counter it maintains is what lets [Server.Run] drain
// gracefully: shutdown waits for every handler goroutine, not merely for the
// transport to report its streams closed.
type Runtime struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	inflight   sync.WaitGroup
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger used for per-RPC start/finish records and panic
// reports. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = logger }
}

// WithTracer sets the tracer used to start server spans. Defaults to the
// global tracer provider.
func WithTracer(tracer trace.Tracer) RuntimeOption {
	return func(r *Runtime) { r.tracer = tracer }
}

// WithPropagator sets the text map propagator used to extract inbound trace
// context from request metadata. Defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) RuntimeOption {
	return func(r *Runtime) { r.propagator = p }
}

// NewRuntime constructs a Runtime, filling unset dependencies from the
// process-wide defaults.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(instrumentationName)
	}
	if r.propagator == nil {
		r.propagator = otel.GetTextMapPropagator()
	}
	return r
}

// panicError carries a recovered handler panic out of the runtime. The
// executor maps it to an Internal status with the panic value attached as
// the cause; the stack is logged, never serialized.
type panicError struct {
	value any
	stack []byte
}

// Error describes the recovered value.
func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

// run executes fn in its own goroutine and waits for either its result or
// cancellation of ctx, whichever comes first. Selecting on ctx here is what
// makes external cancellation (client disconnect, deadline) promptly
// observable even when the handler body ignores its context.
//
// Panics inside fn are recovered and returned as a *panicError. The
// goroutine is tracked in the in-flight counter for graceful drain.
func (r *Runtime) run(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, panicStackBufSize)
				n := runtime.Stack(buf, false)
				done <- outcome{err: &panicError{value: rec, stack: buf[:n]}}
			}
		}()
		value, err := fn(ctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.value, out.err
	}
}

// drain blocks until every handler goroutine started by run has finished.
func (r *Runtime) drain() { r.inflight.Wait() }

// logPanic reports a recovered handler panic with its stack trace. The
// client only ever sees the sanitized Internal status produced by the
// executor.
func (r *Runtime) logPanic(ctx context.Context, pe *panicError) {
	r.logger.LogAttrs(ctx, slog.LevelError,
		"Recovered panic during gRPC call",
		slog.Any(panicValueKey, pe.value),
		slog.String(panicStackKey, string(pe.stack)),
	)
}
