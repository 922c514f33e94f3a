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

	"google.golang.org/grpc/codes"

	"github.com/pjscruggs/grpcfx"
)

// step is one untyped link in a transform chain. It receives the original
// handler context and the value produced by the previous step.
type step func(ctx context.Context, h *HandlerContext, cur any) (any, error)

// Transform is an ordered chain of context-derivation steps shared by every
// service registered on one builder. The chain is stored as an explicit step
// list rather than nested closures, so it can be inspected and exercised in
// isolation.
//
// A Transform is immutable: [Derive] copies the step list. Application runs
// the steps exactly once per request, strictly in registration order, and
// short-circuits on the first failure; the handler program never runs when
// derivation fails.
type Transform[C any] struct {
	steps []step
}

// Identity returns the starting transform: the derived context is the raw
// HandlerContext itself.
func Identity() Transform[*HandlerContext] {
	return Transform[*HandlerContext]{}
}

// Derive appends a derivation step, producing a transform for the new
// context type. The step receives the request context, the never-changing
// original HandlerContext, and the value derived so far, so it can combine
// raw transport data with previously derived application fields.
//
// A step failure is normalized to a *grpcfx.Error (Internal when the step
// returned an untyped error) and fails the whole request.
func Derive[C1, C2 any](t Transform[C1], f func(ctx context.Context, h *HandlerContext, cur C1) (C2, error)) Transform[C2] {
	steps := make([]step, len(t.steps), len(t.steps)+1)
	copy(steps, t.steps)
	steps = append(steps, func(ctx context.Context, h *HandlerContext, cur any) (any, error) {
		typed, ok := contextAs[C1](cur)
		if !ok {
			return nil, grpcfx.Newf(codes.Internal, "context transform chain: unexpected intermediate type %T", cur)
		}
		return f(ctx, h, typed)
	})
	return Transform[C2]{steps: steps}
}

// Len reports the number of registered derivation steps.
func (t Transform[C]) Len() int { return len(t.steps) }

// apply folds the chain over the handler context. The returned error is
// always a *grpcfx.Error.
func (t Transform[C]) apply(ctx context.Context, h *HandlerContext) (C, error) {
	var cur any = h
	for _, s := range t.steps {
		next, err := s(ctx, h, cur)
		if err != nil {
			var zero C
			return zero, normalizeStepError(err)
		}
		cur = next
	}
	typed, ok := contextAs[C](cur)
	if !ok {
		var zero C
		return zero, grpcfx.Newf(codes.Internal, "context transform chain: produced %T", cur)
	}
	return typed, nil
}

// boxed re-types the chain so its final value is delivered as an untyped
// context. Used by the builder's any-context escape hatch.
func (t Transform[C]) boxed() Transform[any] {
	return Transform[any]{steps: t.steps}
}

// contextAs asserts v to T, treating a nil intermediate as T's zero value so
// steps may legitimately derive "no context".
func contextAs[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	typed, ok := v.(T)
	return typed, ok
}

// normalizeStepError coerces a step failure into a *grpcfx.Error, defaulting
// to Internal for untyped errors.
func normalizeStepError(err error) *grpcfx.Error {
	if gerr, ok := err.(*grpcfx.Error); ok {
		return gerr
	}
	return grpcfx.From(codes.Internal, err)
}
