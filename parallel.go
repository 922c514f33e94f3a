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
	"strings"
	"sync"
)

// ParallelError aggregates the failures of concurrently executed
// sub-computations. The server executor flattens it into a single Internal
// status whose message joins the constituent messages with " | ",
// distinguishing concurrent composition from the "; " used for sequential
// composites ([errors.Join]).
type ParallelError struct {
	Errs []error
}

// Error joins the constituent messages with " | ".
func (p *ParallelError) Error() string {
	msgs := make([]string, len(p.Errs))
	for i, err := range p.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, " | ")
}

// Unwrap exposes the constituent errors to the errors package.
func (p *ParallelError) Unwrap() []error { return p.Errs }

// Parallel runs every fn in its own goroutine and waits for all of them.
// It returns nil when every fn succeeds, the sole failure when exactly one
// fails, and a *ParallelError collecting all failures (in registration
// order) otherwise.
//
// The context is passed through unmodified; fns are expected to honor its
// cancellation themselves.
func Parallel(ctx context.Context, fns ...func(context.Context) error) error {
	if len(fns) == 0 {
		return nil
	}
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		go func() {
			defer wg.Done()
			errs[i] = fn(ctx)
		}()
	}
	wg.Wait()

	failed := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	default:
		return &ParallelError{Errs: failed}
	}
}
