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

// UnionTag identifies the Union operator's Frame variant.
const UnionTag = "union"

// UnionFrame is Union's continuation piece: which side is active, plus
// both children's frames (serializable as either side with a
// discriminator, per spec.md §4.2).
type UnionFrame struct {
	Left, Right Frame
	OnRight     bool
}

// Tag implements Frame.
func (UnionFrame) Tag() string { return UnionTag }

// Union is the bag-union operator: no deduplication, returns mappings
// from the left child until drained, then from the right.
// Multiplicities are preserved.
type Union struct {
	left, right Iterator
	onRight     bool
}

var _ Iterator = (*Union)(nil)

// NewUnion constructs a Union of left and right.
func NewUnion(left, right Iterator) *Union {
	return &Union{left: left, right: right}
}

// LoadUnion reconstructs a Union from a frame and rehydrated children.
func LoadUnion(f *UnionFrame, left, right Iterator) *Union {
	return &Union{left: left, right: right, onRight: f.OnRight}
}

// HasNext implements Iterator.
func (u *Union) HasNext(ctx context.Context) bool {
	if !u.onRight && u.left.HasNext(ctx) {
		return true
	}
	return u.right.HasNext(ctx)
}

// Next implements Iterator.
func (u *Union) Next(ctx context.Context) (types.Mapping, error) {
	if !u.onRight {
		if u.left.HasNext(ctx) {
			return u.left.Next(ctx)
		}
		u.onRight = true
	}
	if u.right.HasNext(ctx) {
		return u.right.Next(ctx)
	}
	return nil, nil
}

// NextStage implements Iterator.
func (u *Union) NextStage(ctx context.Context, binding types.Mapping) error {
	u.onRight = false
	if err := u.left.NextStage(ctx, binding); err != nil {
		return err
	}
	return u.right.NextStage(ctx, binding)
}

// Save implements Iterator.
func (u *Union) Save() Frame {
	return &UnionFrame{Left: u.left.Save(), Right: u.right.Save(), OnRight: u.onRight}
}

// SerializedName implements Iterator.
func (u *Union) SerializedName() string { return UnionTag }
