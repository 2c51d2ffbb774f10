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

// Package plan implements the C4 logical-to-physical compiler
// (spec.md §4.4): it walks an already-parsed SPARQL algebra tree —
// this engine takes the algebra as input rather than SPARQL text,
// per spec.md §1's scope — and produces a pipeline of C2/C3
// operators, including selectivity-ordered BGP join trees.
package plan

import (
	"github.com/sageql/sageql/internal/path"
	"github.com/sageql/sageql/internal/types"
)

// Node is one node of the SPARQL algebra this compiler accepts:
// SelectQuery, ConstructQuery, Project, Reduced, BGP, Union, Filter,
// Extend, or Join (spec.md §4.4's exact list).
type Node interface{ algebraNode() }

// Pattern is one triple of a BGP. Path is nil for a plain triple (the
// common case); when set, it is the compiled property-path expression
// standing in for Predicate, per spec.md §4.3. A nil Path is compiled
// identically to path.IRIPath(Predicate), so BGP compilation never
// needs to special-case the two.
type Pattern struct {
	Subject   types.Term
	Predicate types.Term // ignored when Path != nil
	Object    types.Term
	Path      *path.Expr
}

func (p Pattern) pathExpr() path.Expr {
	if p.Path != nil {
		return *p.Path
	}
	return path.IRIPath(p.Predicate)
}

// vars returns the pattern's variable terms, for selectivity-sort
// connectivity tracking.
func (p Pattern) vars() []types.Term {
	var out []types.Term
	if p.Subject.IsVariable() {
		out = append(out, p.Subject)
	}
	if p.Path == nil && p.Predicate.IsVariable() {
		out = append(out, p.Predicate)
	}
	if p.Object.IsVariable() {
		out = append(out, p.Object)
	}
	return out
}

// SelectQuery is the outermost node of a SELECT query: it fixes which
// named graph Body is evaluated against.
type SelectQuery struct {
	Graph types.Term
	Body  Node
}

func (*SelectQuery) algebraNode() {}

// ConstructQuery is the outermost node of a CONSTRUCT query: Body
// feeds Template, accumulating triples into a result graph
// (spec.md §4.2, "Construct").
type ConstructQuery struct {
	Graph    types.Term
	Template types.Triple
	Body     Node
}

func (*ConstructQuery) algebraNode() {}

// Project restricts the mapping domain Body produces to Vars.
type Project struct {
	Vars []types.Term
	Body Node
}

func (*Project) algebraNode() {}

// Reduced applies the REDUCED modifier to Body (spec.md §4.2,
// "Distinct-by-REDUCED"). Cap, if positive, bounds the dedup set's
// memory before it degrades to pass-through.
type Reduced struct {
	Body Node
	Cap  int
}

func (*Reduced) algebraNode() {}

// BGP is a conjunction of triple patterns, compiled by the
// selectivity-ordered join builder (spec.md §4.4).
type BGP struct {
	Patterns []Pattern
}

func (*BGP) algebraNode() {}

// Union is P1 UNION P2, compiled to a bag-union (spec.md §4.2).
type Union struct {
	Left, Right Node
}

func (*Union) algebraNode() {}

// Filter wraps Body with a FILTER expression.
type Filter struct {
	Expression string
	Body       Node
}

func (*Filter) algebraNode() {}

// Extend is BIND(expression AS Var) wrapping Body. Body may be nil,
// meaning a constant BIND over an implicit empty BGP (spec.md §4.4,
// "an extend over an empty BGP produces a standalone single-tuple
// bind").
type Extend struct {
	Var        types.Term
	Expression string
	Body       Node
}

func (*Extend) algebraNode() {}

// Join is the algebra-level join of two sub-patterns — typically two
// BGPs juxtaposed in a group graph pattern. Per spec.md §4.4 it is
// realized by concatenating the triple lists and re-running the BGP
// compiler, not by physically joining two independently compiled
// subtrees, so both sides must themselves be *BGP.
type Join struct {
	Left, Right *BGP
}

func (*Join) algebraNode() {}
