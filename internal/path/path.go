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

// Package path implements the C3 property-path compiler (spec.md
// §4.3): it turns a path expression tree into a pipeline of C2
// operators, choosing direction and estimating selectivity the way
// the BGP compiler in internal/plan needs.
package path

import (
	"fmt"

	"github.com/sageql/sageql/internal/types"
)

// Kind discriminates the property-path expression node types named in
// spec.md §4.3.
type Kind int

const (
	// IRI is a single predicate.
	IRI Kind = iota
	// Sequence is P1/P2/…/Pn, evaluated through fresh intermediate variables.
	Sequence
	// Alternative is P1|P2|…|Pn, evaluated as a bag-union.
	Alternative
	// Inverse is ^P.
	Inverse
	// Negated is !(p1|…|pk), a negated property set.
	Negated
	// Mul is P? / P+ / P*, a bounded transitive closure.
	Mul
)

// Mod is the repetition modifier of a Mul node.
type Mod byte

const (
	// ZeroOrOne is P?.
	ZeroOrOne Mod = '?'
	// OneOrMore is P+.
	OneOrMore Mod = '+'
	// ZeroOrMore is P*.
	ZeroOrMore Mod = '*'
)

// Expr is one node of a property-path expression tree (spec.md §4.3).
// Only the fields relevant to Kind are populated; Reversed is set by
// pushInverse while flattening Inverse nodes down to IRI/Negated
// leaves and must otherwise be false.
type Expr struct {
	Kind     Kind
	IRI      types.Term   // Kind == IRI
	Negated  []types.Term // Kind == Negated: the forward predicates rejected by the filter
	Reversed bool         // Kind == IRI || Kind == Negated: subject/object are swapped at compile time
	Parts    []Expr       // Kind == Sequence || Kind == Alternative
	Inner    *Expr        // Kind == Inverse || Kind == Mul
	PathMod  Mod          // Kind == Mul
}

// IRIPath builds a single-predicate path expression.
func IRIPath(predicate types.Term) Expr { return Expr{Kind: IRI, IRI: predicate} }

// SequencePath builds P1/P2/…/Pn.
func SequencePath(parts ...Expr) Expr { return Expr{Kind: Sequence, Parts: parts} }

// AlternativePath builds P1|P2|…|Pn.
func AlternativePath(parts ...Expr) Expr { return Expr{Kind: Alternative, Parts: parts} }

// InversePath builds ^P.
func InversePath(inner Expr) Expr { return Expr{Kind: Inverse, Inner: &inner} }

// NegatedPath builds !(p1|…|pk); reverse-negated elements (^pi) are
// rejected by the caller before this constructor, per spec.md §4.3.
func NegatedPath(predicates ...types.Term) Expr { return Expr{Kind: Negated, Negated: predicates} }

// MulPath builds P?, P+, or P*.
func MulPath(mod Mod, inner Expr) Expr { return Expr{Kind: Mul, Inner: &inner, PathMod: mod} }

// Normalize eliminates every Inverse node from e by pushing the
// inversion down to its IRI/Negated leaves (spec.md §4.3's InvPath
// rule, generalized recursively): Inverse(Inverse(P)) cancels,
// Inverse(Sequence) reverses and inverts each part, Inverse
// (Alternative) inverts each part, Inverse(Mul) inverts the inner
// path. The result carries the inversion only as each leaf's Reversed
// flag.
func Normalize(e Expr) Expr { return pushInverse(e, false) }

func pushInverse(e Expr, rev bool) Expr {
	switch e.Kind {
	case Inverse:
		return pushInverse(*e.Inner, !rev)
	case Sequence:
		parts := make([]Expr, len(e.Parts))
		for i, p := range e.Parts {
			if rev {
				parts[len(e.Parts)-1-i] = pushInverse(p, true)
			} else {
				parts[i] = pushInverse(p, false)
			}
		}
		return Expr{Kind: Sequence, Parts: parts}
	case Alternative:
		parts := make([]Expr, len(e.Parts))
		for i, p := range e.Parts {
			parts[i] = pushInverse(p, rev)
		}
		return Expr{Kind: Alternative, Parts: parts}
	case Mul:
		inner := pushInverse(*e.Inner, rev)
		return Expr{Kind: Mul, Inner: &inner, PathMod: e.PathMod}
	case IRI:
		return Expr{Kind: IRI, IRI: e.IRI, Reversed: e.Reversed != rev}
	case Negated:
		return Expr{Kind: Negated, Negated: e.Negated, Reversed: e.Reversed != rev}
	default:
		panic(fmt.Sprintf("path: unreachable kind %d", e.Kind))
	}
}
