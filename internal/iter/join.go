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

// JoinTag identifies the Join operator's Frame variant.
const JoinTag = "join"

// JoinFrame is Join's continuation piece: the current outer binding
// (if any) plus both children's own frames (spec.md §4.5, "Join frames
// carry a left/right oneof pointing to child frames by tag").
type JoinFrame struct {
	Left, Right Frame
	Outer       types.Mapping
	OuterValid  bool
}

// Tag implements Frame.
func (JoinFrame) Tag() string { return JoinTag }

// Join is the index-nested-loop join operator (spec.md §4.2): left is
// the outer child, right is the inner child, reparameterized via
// NextStage for every outer tuple. Ordering is deterministic:
// left-to-right, outer-before-inner.
type Join struct {
	left, right Iterator
	outer       types.Mapping
	outerValid  bool
}

var _ Iterator = (*Join)(nil)

// NewJoin constructs a Join over left (outer) and right (inner).
func NewJoin(left, right Iterator) *Join {
	return &Join{left: left, right: right}
}

// LoadJoin reconstructs a Join from a frame and its already-rehydrated
// children.
func LoadJoin(f *JoinFrame, left, right Iterator) *Join {
	return &Join{left: left, right: right, outer: f.Outer, outerValid: f.OuterValid}
}

// HasNext implements Iterator: left.has_next ∨ (outer ≠ None ∧
// right.has_next), exactly as spec.md §4.2 specifies.
func (j *Join) HasNext(ctx context.Context) bool {
	if j.left.HasNext(ctx) {
		return true
	}
	return j.outerValid && j.right.HasNext(ctx)
}

// Next implements Iterator.
func (j *Join) Next(ctx context.Context) (types.Mapping, error) {
	if !j.outerValid || !j.right.HasNext(ctx) {
		if !j.left.HasNext(ctx) {
			return nil, nil
		}
		outer, err := j.left.Next(ctx)
		if err != nil {
			return nil, err
		}
		if outer == nil {
			// Left advanced without producing; suspend so the
			// scheduler can observe elapsed time.
			return nil, nil
		}
		j.outer = outer
		j.outerValid = true
		if err := j.right.NextStage(ctx, outer); err != nil {
			return nil, err
		}
		// Suspend between outer tuples, per spec.md §5.
		return nil, nil
	}

	inner, err := j.right.Next(ctx)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, nil
	}
	return j.outer.Merge(inner), nil
}

// NextStage implements Iterator: resets both children to a state
// equivalent to freshly constructed with binding substituted into
// their free variables.
func (j *Join) NextStage(ctx context.Context, binding types.Mapping) error {
	j.outer = nil
	j.outerValid = false
	if err := j.left.NextStage(ctx, binding); err != nil {
		return err
	}
	return j.right.NextStage(ctx, binding)
}

// Save implements Iterator.
func (j *Join) Save() Frame {
	return &JoinFrame{
		Left:       j.left.Save(),
		Right:      j.right.Save(),
		Outer:      j.outer,
		OuterValid: j.outerValid,
	}
}

// SerializedName implements Iterator.
func (j *Join) SerializedName() string { return JoinTag }
