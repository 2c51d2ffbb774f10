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

// PiggybackTag identifies the Piggyback operator's Frame variant.
const PiggybackTag = "piggyback"

// PiggybackFrame is Piggyback's continuation piece: the path pattern
// id and direction it tags every control tuple with, the outer
// context used to build those tuples, the pending solution (if one
// was computed but not yet delivered), and the child Closure's frame.
// The shared ControlTuplesBuffer is rebuilt by the caller, not carried
// in the frame (spec.md §5, "the control-tuples buffer is per-pipeline").
type PiggybackFrame struct {
	PatternID      string
	Forward        bool
	CurrentBinding types.Mapping
	Mu             types.Mapping
	Child          Frame
}

// Tag implements Frame.
func (PiggybackFrame) Tag() string { return PiggybackTag }

// PTCIterator is satisfied by any property-to-closure iterator whose
// per-step frontier node Piggyback can observe. Closure is the only
// implementation; the interface exists so Piggyback does not need to
// import Closure's concrete fields.
type PTCIterator interface {
	Iterator
	LastVisited() (node types.Term, depth int, final bool, ok bool)
	MaxDepth() int
}

// Piggyback sits above a Closure to expose its partially-explored
// frontier nodes as control tuples fed into a shared
// ControlTuplesBuffer, while still passing through the Closure's own
// solution mappings (spec.md §4.2, "Path collector").
type Piggyback struct {
	child     PTCIterator
	patternID string
	forward   bool
	buffer    *ControlTuplesBuffer

	currentBinding types.Mapping
	mu             types.Mapping
}

var _ Iterator = (*Piggyback)(nil)

// NewPiggyback wraps child, tagging every control tuple it produces
// with patternID and forward.
func NewPiggyback(child PTCIterator, patternID string, forward bool, buffer *ControlTuplesBuffer) *Piggyback {
	return &Piggyback{child: child, patternID: patternID, forward: forward, buffer: buffer}
}

// LoadPiggyback reconstructs a Piggyback from a frame, its rehydrated
// child, and the pipeline's shared buffer.
func LoadPiggyback(f *PiggybackFrame, child PTCIterator, buffer *ControlTuplesBuffer) *Piggyback {
	return &Piggyback{
		child: child, patternID: f.PatternID, forward: f.Forward, buffer: buffer,
		currentBinding: f.CurrentBinding, mu: f.Mu,
	}
}

// HasNext implements Iterator.
func (p *Piggyback) HasNext(ctx context.Context) bool {
	return p.mu != nil || p.child.HasNext(ctx)
}

// Next implements Iterator.
func (p *Piggyback) Next(ctx context.Context) (types.Mapping, error) {
	if p.mu != nil {
		solution := p.mu
		p.mu = nil
		return solution, nil
	}
	if !p.child.HasNext(ctx) {
		return nil, nil
	}
	mu, err := p.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	node, depth, final, ok := p.child.LastVisited()
	if !ok {
		return nil, nil
	}
	if final {
		p.mu = mu
	}
	context := p.currentBinding
	if context == nil {
		context = types.Mapping{}
	}
	ct := p.buffer.CreateControlTuple(p.patternID, context, node, depth+1, p.child.MaxDepth(), p.forward)
	if _, err := p.buffer.Add(ct); err != nil {
		return nil, err
	}
	return nil, nil
}

// NextStage implements Iterator.
func (p *Piggyback) NextStage(ctx context.Context, binding types.Mapping) error {
	p.currentBinding = binding
	p.mu = nil
	return p.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (p *Piggyback) Save() Frame {
	return &PiggybackFrame{
		PatternID: p.patternID, Forward: p.forward,
		CurrentBinding: p.currentBinding, Mu: p.mu, Child: p.child.Save(),
	}
}

// SerializedName implements Iterator.
func (p *Piggyback) SerializedName() string { return PiggybackTag }
