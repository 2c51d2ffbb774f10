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

// Package types contains the data types and interfaces that define the
// major functional blocks of the query engine (C1, the data model of
// spec.md §3). Placing them here, rather than alongside their
// implementations, is what lets internal/iter, internal/plan and
// internal/storage depend on each other's contracts without an import
// cycle.
package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/sageql/sageql/internal/snapshot"
)

// A Term is the string-encoded N3 form of an RDF value: a bare IRI
// text, a literal's N3 lexical form (quotes, datatype, language tag
// included), or an underscore-prefixed blank node identifier. A
// variable is a Term whose text begins with "?". This is the single
// interchange unit between storage and every operator; typing for
// FILTER/BIND is reconstructed on demand by internal/term.
type Term string

// IsVariable reports whether t names a SPARQL variable.
func (t Term) IsVariable() bool { return strings.HasPrefix(string(t), "?") }

// Triple is the record {subject, predicate, object, graph} from
// spec.md §3. Each field is either a bound Term or a variable Term.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// String renders the triple pattern for logging/debugging.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s . graph=%s", t.Subject, t.Predicate, t.Object, t.Graph)
}

// Mapping is a solution mapping µ: an unordered map from variable name
// (with leading "?") to term text. Two mappings are compatible when
// they agree on every shared variable; per spec.md §3 the engine
// assumes compatibility by construction (only jointly-bound variables
// are ever shared) and Merge does not re-check it.
type Mapping map[Term]Term

// Clone returns a shallow copy of m so that callers may extend it
// without mutating the original (joins must not mutate an outer
// binding still owned by the left child).
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns the key-wise union of m and other. Per spec.md §3 the
// two are assumed compatible by construction; Merge does not validate
// that shared keys agree, it simply prefers other's value for any key
// collision (which by the compatibility invariant never arises).
func (m Mapping) Merge(other Mapping) Mapping {
	out := make(Mapping, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// CanonicalString renders m in a stable, sorted form suitable as a set
// key for the REDUCED modifier's dedup set.
func (m Mapping) CanonicalString() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sortStrings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(string(m[Term(k)]))
		b.WriteByte('|')
	}
	return b.String()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Cardinality is a non-negative estimate attached to each scan at plan
// time. It is used only for join ordering and client-side progress
// reporting, never for correctness.
type Cardinality int64

// Cursor is a lazily-advanced sequence of triples produced by a
// StorageAdapter (spec.md §3, "Resumable triple cursor"). The
// bookmark returned by LastRead is the sole state needed to restart a
// scan; adapters must make it stable across process restarts.
type Cursor interface {
	// HasNext reports whether Next can still produce a triple. Safe to
	// call repeatedly; must not block.
	HasNext(ctx context.Context) bool
	// Next returns the next triple and advances the cursor.
	Next(ctx context.Context) (Triple, error)
	// LastRead returns an opaque bookmark that, passed back into
	// StorageAdapter.Search, resumes strictly after the last triple
	// returned by Next.
	LastRead() string
}

// StorageAdapter is the C1 contract: the abstract graph over which
// operators scan (spec.md §6, "Storage adapter interface"). The
// production on-disk/table-backed triple indexes are out of scope for
// this engine (spec.md §1); internal/storage/memstore and
// internal/storage/pgstore are reference implementations used by
// tests and by the optional Postgres-backed deployment path.
type StorageAdapter interface {
	// Search returns a cursor over triples matching pattern within the
	// named graph, plus an estimated cardinality. lastRead, if
	// non-empty, resumes a previous scan strictly after that bookmark.
	// asOf fixes the consistency snapshot; a zero value asks the
	// adapter to pick one (typically "now").
	Search(ctx context.Context, pattern Triple, lastRead string, asOf snapshot.Time) (Cursor, Cardinality, error)

	// GraphExists reports whether name is a known named graph. A scan
	// against an unknown graph becomes empty immediately, per the
	// Scan operator's failure mode in spec.md §4.2; it must not abort.
	GraphExists(ctx context.Context, name Term) bool

	// Commit finalizes all writes performed through this adapter since
	// the transaction was opened, for the given graph.
	Commit(ctx context.Context, graph Term) error
	// Abort discards all writes performed through this adapter since
	// the transaction was opened, for the given graph.
	Abort(ctx context.Context, graph Term) error

	// InsertQuad inserts one quad; a no-op if already present.
	InsertQuad(ctx context.Context, graph Term, t Triple) error
	// DeleteQuad deletes one quad; a no-op if absent.
	DeleteQuad(ctx context.Context, graph Term, t Triple) error
}

// GraphLimits carries the per-graph configuration from spec.md §6 that
// the storage adapter is authoritative for (max_depth is a property of
// the graph's configured closure bound, not of any one query).
type GraphLimits interface {
	MaxDepth(ctx context.Context, graph Term) int
}

// noCopy may be embedded in structs that hold mutable iteration state
// (cursors, pools) to signal via `go vet -copylocks` that copying
// would be a bug.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
