// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

// Package iter implements the C2 preemptable physical operators: the
// single pull contract shared by every node in a physical pipeline
// (spec.md §4.1), and each concrete operator (spec.md §4.2). Every
// operator is simultaneously a relational iterator, a freezable state
// machine (Save), and a reparameterizable subtree (NextStage).
package iter

import (
	"context"

	"github.com/sageql/sageql/internal/types"
)

// Iterator is the C2 preemptable-iterator contract. The only
// coroutine points are inside Next: returning a nil Mapping with err
// == nil while HasNext is still true means "I made progress, call me
// again" — the suspension point the scheduler drives (spec.md §4.1).
type Iterator interface {
	// HasNext reports whether Next may still produce a mapping. Cheap,
	// side-effect-free, safe to call repeatedly. Must not return false
	// while a tuple is still owed.
	HasNext(ctx context.Context) bool

	// Next cooperatively produces zero or one mapping. A nil Mapping
	// with a nil error means the iterator advanced but has nothing to
	// yield yet; the caller must call again.
	Next(ctx context.Context) (types.Mapping, error)

	// NextStage reparameterizes this subtree with an outer binding,
	// fully resetting it to a state equivalent to having been freshly
	// constructed with binding substituted into its free variables.
	// Used only under joins.
	NextStage(ctx context.Context, binding types.Mapping) error

	// Save emits a Frame that, when loaded, reconstructs an operator
	// equivalent to self.
	Save() Frame

	// SerializedName is the short tag identifying which Frame variant
	// this operator uses.
	SerializedName() string
}

// Frame is one case of the discriminated union of continuation
// pieces described in spec.md §3 ("Continuation token") and §4.5. Each
// operator variant has exactly one Frame variant.
type Frame interface {
	Tag() string
}

// Sink is implemented by operators that are driven purely for their
// side effects and never yield a mapping from Next (Construct, and
// update's QuadMutation). The scheduler and session manager drive a
// Sink like any other Iterator; neither calls Done.
type Sink interface {
	Iterator
	// Done reports whether the sink has finished consuming its child.
	Done() bool
}
