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
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"

	"github.com/pjscruggs/grpcfx"
)

// Span attribute keys for server-side RPC spans. The values are part of the
// span contract consumed by existing dashboards and must not change.
const (
	spanMethodAttr   = "method"
	spanProtocolAttr = "protocol"
	spanProtocolName = "gRPC"
)

// Executor runs unary handler programs for one service. It is a stateless
// pairing of the shared [Runtime] handle with the builder's composed
// transform chain; constructing one is cheap and the same instance is shared
// by every request routed to the service.
type Executor[C any] struct {
	rt        *Runtime
	transform Transform[C]
}

// NewExecutor pairs a runtime handle with a transform chain. A nil runtime
// is replaced with a default-constructed one.
func NewExecutor[C any](rt *Runtime, t Transform[C]) *Executor[C] {
	if rt == nil {
		rt = NewRuntime()
	}
	return &Executor[C]{rt: rt, transform: t}
}

// Unary executes one unary RPC.
//
// The derived context is computed first; if the transform chain fails, the
// call fails with that error and program never runs. Before the program is
// invoked, any W3C trace parent present in the inbound metadata is
// extracted (absent or structurally invalid headers yield a fresh root),
// and the program's execution is wrapped in a server span named exactly
// like the full method ("service/Method") with attributes
// method=<full name> and protocol="gRPC". The same identifiers annotate the
// start and finish log records.
//
// The program runs on the runtime with the request's cancellation signal
// wired in. Outcomes map exhaustively:
//
//   - success: returned as-is;
//   - *grpcfx.Error: converted to the transport status with the same code
//     and message;
//   - panic (defect): Internal, with the panic value attached as cause;
//   - cancellation: Aborted;
//   - composite failure: Internal, constituent messages joined with "; "
//     (sequential, [errors.Join]) or " | " ([grpcfx.Parallel]);
//   - composite with no identifiable failure: Unknown.
func Unary[C, Req, Res any](
	ctx context.Context,
	ex *Executor[C],
	fullMethod string,
	req Req,
	program func(ctx context.Context, c C, req Req) (Res, error),
) (Res, error) {
	var zero Res
	rt := ex.rt
	h := NewHandlerContext(ctx, fullMethod)

	// Extract the propagated parent span, if any, before the span starts.
	// Invalid or missing headers leave the context untouched, so the span
	// below becomes a root.
	if len(h.Metadata) > 0 {
		ctx = rt.propagator.Extract(ctx, metadataCarrier{md: h.Metadata})
	}

	ctx, span := rt.tracer.Start(ctx, h.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(spanMethodAttr, h.Method),
			attribute.String(spanProtocolAttr, spanProtocolName),
		),
	)
	defer span.End()

	service, method := splitMethodName(h.Method)
	startTime := time.Now()
	rt.logger.LogAttrs(ctx, slog.LevelInfo, "Starting gRPC server call",
		slog.String(grpcServiceKey, service),
		slog.String(grpcMethodKey, method),
	)

	var callErr error
	defer func() {
		finishAttrs := assembleFinishAttrs(time.Since(startTime), callErr, h.peerAddress())
		attrs := make([]slog.Attr, 0, 2+len(finishAttrs))
		attrs = append(attrs,
			slog.String(grpcServiceKey, service),
			slog.String(grpcMethodKey, method),
		)
		attrs = append(attrs, finishAttrs...)
		rt.logger.LogAttrs(ctx, slog.LevelInfo, "Finished gRPC server call", attrs...)
	}()

	derived, err := ex.transform.apply(ctx, h)
	if err != nil {
		callErr = err
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return zero, err
	}

	out, err := rt.run(ctx, func(ctx context.Context) (any, error) {
		return program(ctx, derived, req)
	})
	if err != nil {
		if pe, ok := err.(*panicError); ok {
			rt.logPanic(ctx, pe)
		}
		mapped := mapFailure(err)
		callErr = mapped
		span.RecordError(mapped)
		span.SetStatus(otelcodes.Error, mapped.Message)
		return zero, mapped
	}

	res, ok := out.(Res)
	if !ok && out != nil {
		mapped := grpcfx.Newf(codes.Internal, "handler returned unexpected response type %T", out)
		callErr = mapped
		span.SetStatus(otelcodes.Error, mapped.Message)
		return zero, mapped
	}
	return res, nil
}

// mapFailure converts a failed program outcome into the *grpcfx.Error sent
// to the transport. See the outcome table on [Unary].
func mapFailure(err error) *grpcfx.Error {
	// Defects recovered by the runtime. The original panic value travels as
	// the cause, never over the wire.
	var pe *panicError
	if errors.As(err, &pe) {
		return &grpcfx.Error{
			Code:    codes.Internal,
			Message: "internal server error caused by panic",
			Cause:   pe,
		}
	}

	// Typed application failures pass through unchanged. The assertion is
	// deliberately direct: a composite wrapping a typed failure must stay a
	// composite.
	if gerr, ok := err.(*grpcfx.Error); ok {
		return gerr
	}

	// Composite failures from concurrent or joined sub-computations.
	if _, ok := err.(interface{ Unwrap() []error }); ok {
		msg, leaves := renderComposite(err)
		if leaves == 0 {
			return &grpcfx.Error{Code: codes.Unknown, Message: "unknown failure", Cause: err}
		}
		return &grpcfx.Error{Code: codes.Internal, Message: msg, Cause: err}
	}

	// External cancellation propagated by the runtime, or a handler
	// returning its context error.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &grpcfx.Error{Code: codes.Aborted, Message: err.Error(), Cause: err}
	}

	// Anything else is an unhandled defect.
	return grpcfx.From(codes.Internal, err)
}

// renderComposite flattens a composite failure into one message, joining
// sequential constituents with "; " and parallel ones with " | ". It also
// counts the failure leaves so an empty composite can map to Unknown.
func renderComposite(err error) (string, int) {
	switch e := err.(type) {
	case *grpcfx.ParallelError:
		return joinComposite(e.Errs, " | ")
	case interface{ Unwrap() []error }:
		return joinComposite(e.Unwrap(), "; ")
	default:
		return err.Error(), 1
	}
}

func joinComposite(errs []error, sep string) (string, int) {
	parts := make([]string, 0, len(errs))
	leaves := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		msg, n := renderComposite(err)
		if n == 0 {
			continue
		}
		parts = append(parts, msg)
		leaves += n
	}
	return strings.Join(parts, sep), leaves
}
