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
	"strings"
	"testing"

	"google.golang.org/grpc"
)

// emptyService is a minimal registerable interface for builder tests.
type emptyService interface{}

// stubService builds a Service with an empty handler table.
func stubService[C any](tag string) Service[C] {
	return Service[C]{
		Tag: tag,
		Bind: func(*Executor[C]) (*grpc.ServiceDesc, any) {
			return &grpc.ServiceDesc{
				ServiceName: tag,
				HandlerType: (*emptyService)(nil),
				Metadata:    "builder_test",
			}, struct{}{}
		},
	}
}

// mustPanic runs fn and asserts it panics with a message containing want.
func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		msg, ok := rec.(string)
		if !ok || !strings.Contains(msg, want) {
			t.Fatalf("panic = %v, want message containing %q", rec, want)
		}
	}()
	fn()
}

// TestBuilderRejectsDuplicateTag verifies duplicate registration fails at
// composition time, before Build can be called.
func TestBuilderRejectsDuplicateTag(t *testing.T) {
	t.Parallel()

	b := New().Add(stubService[*HandlerContext]("test.Dup"))
	mustPanic(t, "duplicate service registration", func() {
		b.Add(stubService[*HandlerContext]("test.Dup"))
	})
}

// TestBuilderRejectsEmptyTag verifies an empty tag is a composition error.
func TestBuilderRejectsEmptyTag(t *testing.T) {
	t.Parallel()

	mustPanic(t, "tag must not be empty", func() {
		New().Add(stubService[*HandlerContext](""))
	})
}

// TestWithTransformBeforeServicesOnly verifies the transform chain cannot
// be replaced once a service has committed to it.
func TestWithTransformBeforeServicesOnly(t *testing.T) {
	t.Parallel()

	chain := Derive(Identity(), func(context.Context, *HandlerContext, *HandlerContext) (string, error) {
		return "", nil
	})

	// Legal: transform first, then services.
	b := WithTransform(New(), chain).Add(stubService[string]("test.Typed"))
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// Illegal: services already registered.
	withSvc := New().Add(stubService[*HandlerContext]("test.Early"))
	mustPanic(t, "before any service", func() {
		WithTransform(withSvc, chain)
	})
}

// TestBuilderValueSemantics verifies that adding to a builder does not
// mutate the original value.
func TestBuilderValueSemantics(t *testing.T) {
	t.Parallel()

	base := New().Add(stubService[*HandlerContext]("test.A"))
	_ = base.Add(stubService[*HandlerContext]("test.B"))

	// base must still accept test.B: the earlier Add returned a copy.
	b2 := base.Add(stubService[*HandlerContext]("test.B"))
	if len(b2.bindings) != 2 {
		t.Fatalf("bindings = %d, want 2", len(b2.bindings))
	}
	if len(base.bindings) != 1 {
		t.Fatalf("original builder mutated: %d bindings", len(base.bindings))
	}
}

// TestBuildRequiresService verifies the zero-service case is rejected.
func TestBuildRequiresService(t *testing.T) {
	t.Parallel()

	if _, err := New().Build(); err == nil {
		t.Fatalf("Build() accepted a builder with no services")
	}
}

// TestAddAnyAcceptsAnyContext verifies the escape hatch composes with a
// typed builder and still claims its tag.
func TestAddAnyAcceptsAnyContext(t *testing.T) {
	t.Parallel()

	chain := Derive(Identity(), func(context.Context, *HandlerContext, *HandlerContext) (int, error) {
		return 1, nil
	})

	b := WithTransform(New(), chain).
		Add(stubService[int]("test.Typed")).
		AddAny(stubService[any]("test.Loose"))

	mustPanic(t, "duplicate service registration", func() {
		b.AddAny(stubService[any]("test.Loose"))
	})

	srv, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if srv.State() != StateIdle {
		t.Fatalf("new server state = %v, want idle", srv.State())
	}
}
