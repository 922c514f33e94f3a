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

package grpcfx

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// stubPropagator implements propagation.TextMapPropagator for testing toggles.
type stubPropagator struct{}

// Inject satisfies propagation.TextMapPropagator for test doubles.
func (stubPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

// Extract satisfies propagation.TextMapPropagator and returns the supplied context.
func (stubPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

// Fields reports the headers influenced by the stub propagator.
func (stubPropagator) Fields() []string { return nil }

// resetPropagatorForTest swaps the global propagator and resets the once guard.
func resetPropagatorForTest(tb testing.TB, prop propagation.TextMapPropagator) {
	tb.Helper()
	otel.SetTextMapPropagator(prop)
	installPropagatorOnce = sync.Once{}
}

// TestEnsurePropagationInstallsCompositePropagator verifies EnsurePropagation
// replaces the global propagator when auto-set is enabled.
func TestEnsurePropagationInstallsCompositePropagator(t *testing.T) {
	t.Setenv("GRPCFX_DISABLE_PROPAGATOR_AUTOSET", "")

	stub := stubPropagator{}
	resetPropagatorForTest(t, stub)

	EnsurePropagation()
	if reflect.TypeOf(otel.GetTextMapPropagator()) == reflect.TypeOf(stub) {
		t.Fatalf("expected EnsurePropagation to replace stub propagator")
	}
}

// TestEnsurePropagationHonorsDisableFlag ensures the disable env var prevents mutation.
func TestEnsurePropagationHonorsDisableFlag(t *testing.T) {
	t.Setenv("GRPCFX_DISABLE_PROPAGATOR_AUTOSET", "true")

	stub := stubPropagator{}
	resetPropagatorForTest(t, stub)

	EnsurePropagation()
	if reflect.TypeOf(otel.GetTextMapPropagator()) != reflect.TypeOf(stub) {
		t.Fatalf("expected stub propagator to remain installed when auto-set disabled")
	}
}

// TestDisableAutoSetParsing exercises parsing of the disable flag values.
func TestDisableAutoSetParsing(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  bool
	}{
		{"", false},
		{"1", true},
		{"TRUE", true},
		{"t", true},
		{"0", false},
		{"false", false},
		{"not-a-bool", false},
	} {
		t.Setenv("GRPCFX_DISABLE_PROPAGATOR_AUTOSET", tc.value)
		if got := disableAutoSet(); got != tc.want {
			t.Fatalf("disableAutoSet() = %v for %q, want %v", got, tc.value, tc.want)
		}
	}
}
