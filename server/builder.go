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
	"errors"
	"fmt"

	"google.golang.org/grpc"
)

// Service describes one registerable gRPC service: a unique tag (its
// fully-qualified proto name) plus a bind function that, given the final
// executor, produces the transport service descriptor and the
// implementation value routed to it. Services are produced by generated
// code; applications rarely construct one by hand.
type Service[C any] struct {
	// Tag uniquely identifies the service on a builder. By convention it is
	// the fully-qualified proto service name.
	Tag string
	// Bind closes the generated handler table over the shared executor.
	Bind func(ex *Executor[C]) (*grpc.ServiceDesc, any)
}

// AnyService is a service that accepts any derived context. It is the
// explicit escape hatch for services that ignore the builder's context
// type; see [Builder.AddAny].
type AnyService = Service[any]

// binding defers executor construction until the server runtime exists.
type binding func(rt *Runtime) (*grpc.ServiceDesc, any)

// Builder accumulates services sharing one context-transform chain. It has
// value semantics: every call returns a new builder, so partially-composed
// builders can be reused safely.
//
// Misuse is rejected at composition time: registering two services with the
// same tag panics, as does replacing the transform chain after a service
// has been added. This mirrors grpc-go's own duplicate-registration panic;
// both are programmer errors that no running server should ever see.
type Builder[C any] struct {
	transform Transform[C]
	bindings  []binding
	tags      map[string]struct{}
}

// New returns an empty builder whose derived context is the raw
// [HandlerContext] (the identity transform).
func New() Builder[*HandlerContext] {
	return Builder[*HandlerContext]{
		transform: Identity(),
		tags:      map[string]struct{}{},
	}
}

// WithTransform replaces the builder's transform chain, changing its
// context type. It must be applied while zero services are registered — the
// context shape has to stabilize before any service commits to it — and the
// returned builder starts with an empty service set.
func WithTransform[C1, C2 any](b Builder[C1], t Transform[C2]) Builder[C2] {
	if len(b.bindings) > 0 {
		panic("grpcfx/server: WithTransform must be applied before any service is registered")
	}
	return Builder[C2]{transform: t, tags: map[string]struct{}{}}
}

// Add registers a service requiring the builder's context type. It panics
// if the tag is already registered.
func (b Builder[C]) Add(svc Service[C]) Builder[C] {
	nb := b.withTag(svc.Tag)
	transform := b.transform
	nb.bindings = append(nb.bindings, func(rt *Runtime) (*grpc.ServiceDesc, any) {
		return svc.Bind(NewExecutor(rt, transform))
	})
	return nb
}

// AddAny registers a service that accepts any derived context. The chain
// still runs for its requests (order and failure semantics are unchanged);
// only the final value is delivered untyped. It panics if the tag is
// already registered.
func (b Builder[C]) AddAny(svc AnyService) Builder[C] {
	nb := b.withTag(svc.Tag)
	boxed := b.transform.boxed()
	nb.bindings = append(nb.bindings, func(rt *Runtime) (*grpc.ServiceDesc, any) {
		return svc.Bind(NewExecutor(rt, boxed))
	})
	return nb
}

// withTag copies the builder and claims the tag, panicking on duplicates.
func (b Builder[C]) withTag(tag string) Builder[C] {
	if tag == "" {
		panic("grpcfx/server: service tag must not be empty")
	}
	if _, dup := b.tags[tag]; dup {
		panic(fmt.Sprintf("grpcfx/server: duplicate service registration for %q", tag))
	}
	nb := Builder[C]{
		transform: b.transform,
		bindings:  make([]binding, len(b.bindings), len(b.bindings)+1),
		tags:      make(map[string]struct{}, len(b.tags)+1),
	}
	copy(nb.bindings, b.bindings)
	for t := range b.tags {
		nb.tags[t] = struct{}{}
	}
	nb.tags[tag] = struct{}{}
	return nb
}

// ServerOption configures the server produced by [Builder.Build].
type ServerOption func(*Server)

// WithRuntime supplies the runtime handle shared by every request. Defaults
// to NewRuntime().
func WithRuntime(rt *Runtime) ServerOption {
	return func(s *Server) { s.rt = rt }
}

// WithServerOptions forwards options to the underlying grpc.Server.
func WithServerOptions(opts ...grpc.ServerOption) ServerOption {
	return func(s *Server) { s.grpcOpts = append(s.grpcOpts, opts...) }
}

// Build produces an immutable Server from the accumulated services. At
// least one service must be registered.
func (b Builder[C]) Build(opts ...ServerOption) (*Server, error) {
	if len(b.bindings) == 0 {
		return nil, errors.New("grpcfx/server: Build requires at least one registered service")
	}
	s := &Server{bindings: b.bindings}
	for _, opt := range opts {
		opt(s)
	}
	if s.rt == nil {
		s.rt = NewRuntime()
	}
	return s, nil
}
