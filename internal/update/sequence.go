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

package update

import (
	"context"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// IfExistsTag identifies IfExistsOperator's Frame variant.
const IfExistsTag = "if_exists"

// IfExistsFrame is IfExistsOperator's continuation piece.
type IfExistsFrame struct {
	Read     iter.Frame
	Resolved bool
	Exists   bool
}

// Tag implements iter.Frame.
func (IfExistsFrame) Tag() string { return IfExistsTag }

// IfExistsOperator answers whether a fully-bound WHERE clause has at
// least one match, by pulling read cooperatively until it yields a
// mapping (exists) or drains (does not), per spec.md §4.7. It never
// produces a mapping of its own; UpdateSequenceOperator reads the
// boolean back via Exists after Next reports resolved.
type IfExistsOperator struct {
	read     iter.Iterator
	resolved bool
	exists   bool
}

var _ iter.Iterator = (*IfExistsOperator)(nil)

// NewIfExistsOperator wraps read.
func NewIfExistsOperator(read iter.Iterator) *IfExistsOperator {
	return &IfExistsOperator{read: read}
}

// LoadIfExistsOperator reconstructs an IfExistsOperator from a frame
// and its rehydrated read child.
func LoadIfExistsOperator(f *IfExistsFrame, read iter.Iterator) *IfExistsOperator {
	return &IfExistsOperator{read: read, resolved: f.Resolved, exists: f.Exists}
}

// HasNext implements iter.Iterator.
func (o *IfExistsOperator) HasNext(context.Context) bool { return !o.resolved }

// Next implements iter.Iterator.
func (o *IfExistsOperator) Next(ctx context.Context) (types.Mapping, error) {
	if o.resolved {
		return nil, nil
	}
	if !o.read.HasNext(ctx) {
		o.resolved, o.exists = true, false
		return nil, nil
	}
	mu, err := o.read.Next(ctx)
	if err != nil {
		return nil, err
	}
	if mu == nil {
		return nil, nil
	}
	o.resolved, o.exists = true, true
	return nil, nil
}

// NextStage implements iter.Iterator.
func (o *IfExistsOperator) NextStage(ctx context.Context, binding types.Mapping) error {
	o.resolved, o.exists = false, false
	return o.read.NextStage(ctx, binding)
}

// Save implements iter.Iterator.
func (o *IfExistsOperator) Save() iter.Frame {
	return &IfExistsFrame{Read: o.read.Save(), Resolved: o.resolved, Exists: o.exists}
}

// SerializedName implements iter.Iterator.
func (o *IfExistsOperator) SerializedName() string { return IfExistsTag }

// Exists reports the resolved existence answer; ok is false until
// Next has driven read to a conclusion.
func (o *IfExistsOperator) Exists() (exists, ok bool) { return o.exists, o.resolved }

// sequencePhase enumerates UpdateSequenceOperator's internal stages.
type sequencePhase int

const (
	phaseProbe sequencePhase = iota
	phaseDelete
	phaseInsert
	phaseDone
)

// UpdateSequenceTag identifies UpdateSequenceOperator's Frame variant.
const UpdateSequenceTag = "update_sequence"

// UpdateSequenceFrame is UpdateSequenceOperator's continuation piece.
type UpdateSequenceFrame struct {
	IfExists iter.Frame
	Delete   iter.Frame
	Insert   iter.Frame
	Phase    int
}

// Tag implements iter.Frame.
func (UpdateSequenceFrame) Tag() string { return UpdateSequenceTag }

// UpdateSequenceOperator composes an IfExistsOperator with a guarded
// Delete and Insert (spec.md §4.7, "IfExists-guarded sequence"): when
// the probe finds a match, it runs delete then insert; when it does
// not, neither runs.
type UpdateSequenceOperator struct {
	ifExists *IfExistsOperator
	del      iter.Iterator
	ins      iter.Iterator
	phase    sequencePhase
}

var _ iter.Iterator = (*UpdateSequenceOperator)(nil)

// NewUpdateSequenceOperator constructs an UpdateSequenceOperator.
func NewUpdateSequenceOperator(ifExists *IfExistsOperator, del, ins iter.Iterator) *UpdateSequenceOperator {
	return &UpdateSequenceOperator{ifExists: ifExists, del: del, ins: ins}
}

// LoadUpdateSequenceOperator reconstructs an UpdateSequenceOperator
// from a frame and its rehydrated components.
func LoadUpdateSequenceOperator(f *UpdateSequenceFrame, ifExists *IfExistsOperator, del, ins iter.Iterator) *UpdateSequenceOperator {
	return &UpdateSequenceOperator{ifExists: ifExists, del: del, ins: ins, phase: sequencePhase(f.Phase)}
}

// HasNext implements iter.Iterator.
func (s *UpdateSequenceOperator) HasNext(context.Context) bool { return s.phase != phaseDone }

// Next implements iter.Iterator. Each call advances at most one
// internal stage, suspending (nil, nil) between them so the scheduler
// sees regular progress even across a probe that itself suspends.
func (s *UpdateSequenceOperator) Next(ctx context.Context) (types.Mapping, error) {
	switch s.phase {
	case phaseProbe:
		if _, err := s.ifExists.Next(ctx); err != nil {
			return nil, err
		}
		exists, ok := s.ifExists.Exists()
		if !ok {
			return nil, nil
		}
		if !exists {
			s.phase = phaseDone
			return nil, nil
		}
		s.phase = phaseDelete
		return nil, nil

	case phaseDelete:
		if s.del.HasNext(ctx) {
			if _, err := s.del.Next(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		s.phase = phaseInsert
		return nil, nil

	case phaseInsert:
		if s.ins.HasNext(ctx) {
			if _, err := s.ins.Next(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		s.phase = phaseDone
		return nil, nil

	default:
		return nil, nil
	}
}

// NextStage implements iter.Iterator.
func (s *UpdateSequenceOperator) NextStage(ctx context.Context, binding types.Mapping) error {
	s.phase = phaseProbe
	if err := s.ifExists.NextStage(ctx, binding); err != nil {
		return err
	}
	if err := s.del.NextStage(ctx, binding); err != nil {
		return err
	}
	return s.ins.NextStage(ctx, binding)
}

// Save implements iter.Iterator.
func (s *UpdateSequenceOperator) Save() iter.Frame {
	return &UpdateSequenceFrame{
		IfExists: s.ifExists.Save(), Delete: s.del.Save(), Insert: s.ins.Save(), Phase: int(s.phase),
	}
}

// SerializedName implements iter.Iterator.
func (s *UpdateSequenceOperator) SerializedName() string { return UpdateSequenceTag }
