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

// Package memstore is a reference, in-memory implementation of the C1
// storage adapter contract (types.StorageAdapter). It backs the
// engine's unit tests and the sinktest fixtures; a real deployment
// uses internal/storage/pgstore instead.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sageql/sageql/internal/snapshot"
	"github.com/sageql/sageql/internal/types"
)

// Store is an in-memory multi-graph quad store. All reads and writes
// go through a single mutex: it is intended for tests and small
// deployments, not throughput.
type Store struct {
	mu     sync.RWMutex
	graphs map[types.Term]map[types.Triple]struct{}
	// pending holds writes made since the last Commit/Abort, per graph,
	// so that a mid-quantum abort can be rolled back without touching
	// quads that earlier quantums already committed.
	pending map[types.Term][]pendingWrite
}

type pendingWrite struct {
	triple types.Triple
	delete bool
}

var _ types.StorageAdapter = (*Store)(nil)

// New constructs an empty Store with the given named graphs
// pre-declared (additional graphs may still be created implicitly by
// InsertQuad).
func New(graphs ...types.Term) *Store {
	s := &Store{
		graphs:  make(map[types.Term]map[types.Triple]struct{}),
		pending: make(map[types.Term][]pendingWrite),
	}
	for _, g := range graphs {
		s.graphs[g] = make(map[types.Triple]struct{})
	}
	return s
}

// Seed inserts triples directly into graph, bypassing the
// pending-write/commit bookkeeping — for building test fixtures.
func (s *Store) Seed(graph types.Term, triples ...types.Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graph]
	if !ok {
		g = make(map[types.Triple]struct{})
		s.graphs[graph] = g
	}
	for _, t := range triples {
		t.Graph = graph
		g[t] = struct{}{}
	}
}

// GraphExists implements types.StorageAdapter.
func (s *Store) GraphExists(_ context.Context, name types.Term) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.graphs[name]
	return ok
}

// Search implements types.StorageAdapter. Matching is a full scan of
// the named graph filtered by the pattern's bound positions; lastRead
// resumes strictly after the bookmark index a prior cursor reported.
// Ordering is a stable sort by the quad's canonical string form, so
// that bookmarks remain valid across resumptions per spec.md §5.
func (s *Store) Search(_ context.Context, pattern types.Triple, lastRead string, _ snapshot.Time) (types.Cursor, types.Cardinality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[pattern.Graph]
	if !ok && !pattern.Graph.IsVariable() {
		return &sliceCursor{}, 0, nil
	}
	var matches []types.Triple
	if pattern.Graph.IsVariable() {
		for name, quads := range s.graphs {
			for t := range quads {
				t.Graph = name
				if matchesPattern(pattern, t) {
					matches = append(matches, t)
				}
			}
		}
	} else {
		for t := range g {
			t.Graph = pattern.Graph
			if matchesPattern(pattern, t) {
				matches = append(matches, t)
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool { return quadKey(matches[i]) < quadKey(matches[j]) })

	start := 0
	if lastRead != "" {
		n, err := strconv.Atoi(lastRead)
		if err == nil {
			start = n + 1
		}
	}
	if start > len(matches) {
		start = len(matches)
	}
	return &sliceCursor{quads: matches[start:], offset: start}, types.Cardinality(len(matches)), nil
}

func matchesPattern(pattern, t types.Triple) bool {
	return matchesTerm(pattern.Subject, t.Subject) &&
		matchesTerm(pattern.Predicate, t.Predicate) &&
		matchesTerm(pattern.Object, t.Object)
}

func matchesTerm(pattern, value types.Term) bool {
	return pattern.IsVariable() || pattern == value
}

func quadKey(t types.Triple) string {
	var b strings.Builder
	b.WriteString(string(t.Graph))
	b.WriteByte('|')
	b.WriteString(string(t.Subject))
	b.WriteByte('|')
	b.WriteString(string(t.Predicate))
	b.WriteByte('|')
	b.WriteString(string(t.Object))
	return b.String()
}

// InsertQuad implements types.StorageAdapter.
func (s *Store) InsertQuad(_ context.Context, graph types.Term, t types.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graph]
	if !ok {
		g = make(map[types.Triple]struct{})
		s.graphs[graph] = g
	}
	t.Graph = graph
	if _, present := g[t]; present {
		return nil
	}
	g[t] = struct{}{}
	s.pending[graph] = append(s.pending[graph], pendingWrite{triple: t})
	return nil
}

// DeleteQuad implements types.StorageAdapter.
func (s *Store) DeleteQuad(_ context.Context, graph types.Term, t types.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graph]
	if !ok {
		return nil
	}
	t.Graph = graph
	if _, present := g[t]; !present {
		return nil
	}
	delete(g, t)
	s.pending[graph] = append(s.pending[graph], pendingWrite{triple: t, delete: true})
	return nil
}

// Commit implements types.StorageAdapter: it simply discards the
// pending-write log for graph, since memstore applies writes
// immediately and only needs the log to support Abort.
func (s *Store) Commit(_ context.Context, graph types.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, graph)
	return nil
}

// Abort implements types.StorageAdapter: it replays graph's pending
// writes in reverse, undoing every insert/delete made since the last
// Commit/Abort.
func (s *Store) Abort(_ context.Context, graph types.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graph]
	if !ok {
		return nil
	}
	writes := s.pending[graph]
	for i := len(writes) - 1; i >= 0; i-- {
		w := writes[i]
		if w.delete {
			g[w.triple] = struct{}{}
		} else {
			delete(g, w.triple)
		}
	}
	delete(s.pending, graph)
	return nil
}

// sliceCursor is types.Cursor over an in-memory slice.
type sliceCursor struct {
	quads  []types.Triple
	offset int
	pos    int
}

var _ types.Cursor = (*sliceCursor)(nil)

func (c *sliceCursor) HasNext(context.Context) bool { return c.pos < len(c.quads) }

func (c *sliceCursor) Next(context.Context) (types.Triple, error) {
	t := c.quads[c.pos]
	c.pos++
	return t, nil
}

func (c *sliceCursor) LastRead() string {
	if c.pos == 0 {
		return ""
	}
	return strconv.Itoa(c.offset + c.pos - 1)
}
