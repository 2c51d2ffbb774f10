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

package iter

import (
	"context"

	"github.com/sageql/sageql/internal/types"
)

// ReducedTag identifies the Reduced operator's Frame variant.
const ReducedTag = "reduced"

// ReducedFrame is Reduced's continuation piece: the set of canonical
// mapping strings already emitted, plus the child's frame. Carrying
// the set in the frame is what prevents duplicates across
// resumptions (spec.md §4.2).
type ReducedFrame struct {
	Seen  map[string]struct{}
	Child Frame
}

// Tag implements Frame.
func (ReducedFrame) Tag() string { return ReducedTag }

// Reduced implements the SPARQL REDUCED modifier (spec.md §4.2,
// "Distinct-by-REDUCED"): a streaming pass-through of first
// occurrences, keyed by the mapping's canonical string form. This is
// the resolution of Open Question (a): results() time dedup would be
// incorrect for streaming, so this passes through eagerly instead of
// buffering.
type Reduced struct {
	child Iterator
	seen  map[string]struct{}
	cap   int // 0 means unbounded
}

var _ Iterator = (*Reduced)(nil)

// NewReduced constructs a Reduced wrapping child. capacity, if
// positive, caps the dedup set's size; once exceeded, Reduced degrades
// to pass-through, per spec.md §4.2's memory-bound escape hatch (this
// is a permitted hint-only degradation under SPARQL semantics).
func NewReduced(child Iterator, capacity int) *Reduced {
	return &Reduced{child: child, seen: make(map[string]struct{}), cap: capacity}
}

// LoadReduced reconstructs a Reduced from a frame and its rehydrated child.
func LoadReduced(f *ReducedFrame, child Iterator, capacity int) *Reduced {
	seen := f.Seen
	if seen == nil {
		seen = make(map[string]struct{})
	}
	return &Reduced{child: child, seen: seen, cap: capacity}
}

// HasNext implements Iterator.
func (r *Reduced) HasNext(ctx context.Context) bool { return r.child.HasNext(ctx) }

// Next implements Iterator.
func (r *Reduced) Next(ctx context.Context) (types.Mapping, error) {
	mu, err := r.child.Next(ctx)
	if err != nil || mu == nil {
		return nil, err
	}
	if r.cap > 0 && len(r.seen) >= r.cap {
		// Degraded to a hint: pass everything through once the set is
		// full, rather than growing it unboundedly.
		return mu, nil
	}
	key := mu.CanonicalString()
	if _, dup := r.seen[key]; dup {
		return nil, nil
	}
	r.seen[key] = struct{}{}
	return mu, nil
}

// NextStage implements Iterator.
func (r *Reduced) NextStage(ctx context.Context, binding types.Mapping) error {
	return r.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (r *Reduced) Save() Frame {
	return &ReducedFrame{Seen: r.seen, Child: r.child.Save()}
}

// SerializedName implements Iterator.
func (r *Reduced) SerializedName() string { return ReducedTag }
