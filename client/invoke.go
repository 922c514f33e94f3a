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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const instrumentationName = "github.com/pjscruggs/grpcfx/client"

// Span attribute keys for client-side RPC spans, following the
// OpenTelemetry RPC semantic conventions.
const (
	rpcSystemAttr  = "rpc.system"
	rpcServiceAttr = "rpc.service"
	rpcMethodAttr  = "rpc.method"
	rpcSystemGRPC  = "grpc"
)

// MetadataFunc transforms the outgoing metadata before trace headers are
// injected. It receives a private copy; mutating and returning it is fine.
// Returning an error fails the call before anything reaches the wire.
type MetadataFunc func(ctx context.Context, md metadata.MD) (metadata.MD, error)

// Invoke issues one unary request over conn. Generated client methods wrap
// it with typed request/response signatures; fullMethod is
// "service/Method" (a leading slash is tolerated).
//
// The call runs inside a client span named
// "GrpcClient.makeUnaryRequest(service/Method)" with attributes
// rpc.system="grpc", rpc.service, and rpc.method. The caller's outgoing
// metadata is copied, passed through mdFn when provided, and — if a span is
// active in ctx — extended with W3C traceparent/tracestate headers derived
// from that span. Without an active span the metadata is sent unmodified.
//
// cfg.DefaultTimeout is applied only when the caller set no deadline.
// Cancellation is per-call: the caller's own signal aborts the request
// without affecting the shared session. The response is decoded into reply;
// transport errors are propagated unmodified.
func Invoke(
	ctx context.Context,
	conn grpc.ClientConnInterface,
	cfg Config,
	fullMethod string,
	req, reply any,
	mdFn MetadataFunc,
	opts ...grpc.CallOption,
) error {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method := splitFullMethod(fullMethod)

	tracer := clientTracer(cfg)
	ctx, span := tracer.Start(ctx,
		fmt.Sprintf("GrpcClient.makeUnaryRequest(%s)", fullMethod),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(rpcSystemAttr, rpcSystemGRPC),
			attribute.String(rpcServiceAttr, service),
			attribute.String(rpcMethodAttr, method),
		),
	)
	defer span.End()

	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	if mdFn != nil {
		var err error
		if md, err = mdFn(ctx, md); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return err
		}
	}

	// Inject trace headers only when a span is actually active; a noop
	// tracer leaves the span context invalid and the metadata untouched.
	if trace.SpanContextFromContext(ctx).IsValid() {
		propagator := cfg.Propagator
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}
		carrier := propagation.HeaderCarrier{}
		propagator.Inject(ctx, carrier)
		for key, values := range carrier {
			if len(values) > 0 {
				md.Set(key, values...)
			}
		}
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && cfg.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DefaultTimeout)
		defer cancel()
	}

	if err := conn.Invoke(ctx, "/"+fullMethod, req, reply, opts...); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	return nil
}

// clientTracer resolves the tracer for one call from the config, falling
// back to the global provider.
func clientTracer(cfg Config) trace.Tracer {
	if cfg.TracerProvider != nil {
		return cfg.TracerProvider.Tracer(instrumentationName)
	}
	return otel.Tracer(instrumentationName)
}

// splitFullMethod splits "service/Method" into its components.
func splitFullMethod(fullMethod string) (service, method string) {
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "unknown", fullMethod
}
