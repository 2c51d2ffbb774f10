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

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/snapshot"
	"github.com/sageql/sageql/internal/types"
)

// ScanTag identifies the Scan operator's Frame variant.
const ScanTag = "scan"

// ScanFrame is Scan's continuation piece: spec.md §4.5 requires the
// triple pattern, the outer binding (if any), the cardinality
// estimate, the progress counter, the last_read bookmark, and the
// snapshot timestamp in ISO-8601 form.
type ScanFrame struct {
	Pattern     types.Triple
	Binding     types.Mapping
	Cardinality types.Cardinality
	Progress    int64
	LastRead    string
	AsOf        snapshot.Time
}

// Tag implements Frame.
func (ScanFrame) Tag() string { return ScanTag }

// Scan is the leaf physical operator: it substitutes an outer binding
// into a triple pattern, asks the adapter for a cursor, and projects
// each returned triple's positions back onto the pattern's variables.
type Scan struct {
	adapter types.StorageAdapter

	original types.Triple // the pattern as given at plan time, with variables
	binding  types.Mapping
	graph    types.Term
	asOf     snapshot.Time

	cursor      types.Cursor
	cardinality types.Cardinality
	progress    int64
	empty       bool // true once the named graph was found missing
}

var _ Iterator = (*Scan)(nil)

// NewScan constructs a Scan for pattern under binding (which may be
// nil for a top-level scan), opening a cursor at the adapter's current
// snapshot.
func NewScan(ctx context.Context, adapter types.StorageAdapter, pattern types.Triple, binding types.Mapping) (*Scan, error) {
	s := &Scan{adapter: adapter, original: pattern, graph: pattern.Graph, asOf: snapshot.Now()}
	if err := s.open(ctx, binding, ""); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScan reconstructs a Scan from a previously saved ScanFrame,
// calling the adapter constructor as required by spec.md §4.5 ("each
// variant rebuilds its operator by calling its constructor with the
// frame fields plus the backend handle").
func LoadScan(ctx context.Context, adapter types.StorageAdapter, f *ScanFrame) (*Scan, error) {
	s := &Scan{adapter: adapter, original: f.Pattern, graph: f.Pattern.Graph, asOf: f.AsOf}
	if err := s.open(ctx, f.Binding, f.LastRead); err != nil {
		return nil, err
	}
	s.cardinality = f.Cardinality
	s.progress = f.Progress
	return s, nil
}

func (s *Scan) resolvedPattern() types.Triple {
	p := s.original
	p.Subject = substitute(p.Subject, s.binding)
	p.Predicate = substitute(p.Predicate, s.binding)
	p.Object = substitute(p.Object, s.binding)
	return p
}

func substitute(t types.Term, binding types.Mapping) types.Term {
	if binding == nil || !t.IsVariable() {
		return t
	}
	if v, ok := binding[t]; ok {
		return v
	}
	return t
}

// open (re)establishes the cursor for the current binding, starting at
// lastRead (empty string means "from the beginning"). Per spec.md
// §4.2, a scan against an unknown named graph becomes empty
// immediately rather than aborting.
func (s *Scan) open(ctx context.Context, binding types.Mapping, lastRead string) error {
	s.binding = binding
	s.progress = 0
	if !s.graph.IsVariable() && !s.adapter.GraphExists(ctx, s.graph) {
		s.empty = true
		s.cursor = nil
		s.cardinality = 0
		return nil
	}
	s.empty = false
	cursor, card, err := s.adapter.Search(ctx, s.resolvedPattern(), lastRead, s.asOf)
	if err != nil {
		return errors.Wrap(err, "opening scan cursor")
	}
	s.cursor = cursor
	s.cardinality = card
	return nil
}

// HasNext implements Iterator.
func (s *Scan) HasNext(ctx context.Context) bool {
	if s.empty || s.cursor == nil {
		return false
	}
	return s.cursor.HasNext(ctx)
}

// Next implements Iterator. Scanning itself does not suspend
// mid-tuple: each call either yields exactly one mapping or reports
// that none remain (spec.md §5).
func (s *Scan) Next(ctx context.Context) (types.Mapping, error) {
	if !s.HasNext(ctx) {
		return nil, nil
	}
	t, err := s.cursor.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "advancing scan cursor")
	}
	s.progress++
	out := make(types.Mapping, 4)
	bindPosition(out, s.original.Subject, t.Subject)
	bindPosition(out, s.original.Predicate, t.Predicate)
	bindPosition(out, s.original.Object, t.Object)
	bindPosition(out, s.original.Graph, t.Graph)
	return out, nil
}

func bindPosition(out types.Mapping, pattern, value types.Term) {
	if pattern.IsVariable() {
		out[pattern] = value
	}
}

// NextStage implements Iterator: it rebuilds the cursor under the new
// binding and resets progress, per spec.md §4.2.
func (s *Scan) NextStage(ctx context.Context, binding types.Mapping) error {
	return s.open(ctx, binding, "")
}

// Save implements Iterator.
func (s *Scan) Save() Frame {
	lastRead := ""
	if s.cursor != nil {
		lastRead = s.cursor.LastRead()
	}
	return &ScanFrame{
		Pattern:     s.original,
		Binding:     s.binding,
		Cardinality: s.cardinality,
		Progress:    s.progress,
		LastRead:    lastRead,
		AsOf:        s.asOf,
	}
}

// SerializedName implements Iterator.
func (s *Scan) SerializedName() string { return ScanTag }

// Cardinality returns the estimate recorded at construction, used by
// C4's join ordering.
func (s *Scan) Cardinality() types.Cardinality { return s.cardinality }
