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

// EmptyTag identifies the Empty operator's Frame variant.
const EmptyTag = "empty"

// EmptyFrame is Empty's continuation piece: whether its single
// trivial mapping has already been delivered.
type EmptyFrame struct {
	Delivered bool
}

// Tag implements Frame.
func (EmptyFrame) Tag() string { return EmptyTag }

// Empty is the sentinel C4 compiles an empty BGP to (spec.md §4.4,
// "Empty BGPs produce a sentinel empty iterator"): it yields exactly
// one empty solution mapping, the identity of the join, so that an
// Extend/BIND or Filter wrapped around a pattern-less WHERE clause
// still has exactly one input row to act on.
type Empty struct {
	delivered bool
}

var _ Iterator = (*Empty)(nil)

// NewEmpty constructs a fresh Empty.
func NewEmpty() *Empty { return &Empty{} }

// LoadEmpty reconstructs an Empty from a frame.
func LoadEmpty(f *EmptyFrame) *Empty { return &Empty{delivered: f.Delivered} }

// HasNext implements Iterator.
func (e *Empty) HasNext(context.Context) bool { return !e.delivered }

// Next implements Iterator.
func (e *Empty) Next(context.Context) (types.Mapping, error) {
	if e.delivered {
		return nil, nil
	}
	e.delivered = true
	return types.Mapping{}, nil
}

// NextStage implements Iterator: Empty ignores the outer binding
// (it has no free variables of its own) and simply resets.
func (e *Empty) NextStage(context.Context, types.Mapping) error {
	e.delivered = false
	return nil
}

// Save implements Iterator.
func (e *Empty) Save() Frame { return &EmptyFrame{Delivered: e.delivered} }

// SerializedName implements Iterator.
func (e *Empty) SerializedName() string { return EmptyTag }
