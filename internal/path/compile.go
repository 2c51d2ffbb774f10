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

package path

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// Compile turns a (possibly un-Normalize()d) property-path expression
// between subject and object into a C2 operator pipeline, plus the
// cardinality estimate C4's join ordering needs. boundVars is the set
// of variables already bound earlier in the enclosing BGP, consulted
// only to pick a Mul node's walk direction (spec.md §4.3).
func Compile(ctx context.Context, d *Deps, subject types.Term, raw Expr, object types.Term, boundVars map[types.Term]bool) (iter.Iterator, types.Cardinality, error) {
	return compile(ctx, d, subject, Normalize(raw), object, boundVars)
}

func compile(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term, boundVars map[types.Term]bool) (iter.Iterator, types.Cardinality, error) {
	switch e.Kind {
	case IRI:
		return compileIRI(ctx, d, subject, e, object)
	case Negated:
		return compileNegated(ctx, d, subject, e, object)
	case Sequence:
		return compileSequence(ctx, d, subject, e, object, boundVars)
	case Alternative:
		return compileAlternative(ctx, d, subject, e, object, boundVars)
	case Mul:
		return compileMul(ctx, d, subject, e, object, boundVars)
	case Inverse:
		return nil, 0, errors.New("path: Inverse node escaped normalization")
	default:
		return nil, 0, errors.Errorf("path: unknown kind %d", e.Kind)
	}
}

// compileIRI is the IRI leaf: a single scan, swapping endpoints when
// the path was inverted onto this leaf (spec.md §4.3's InvPath rule).
func compileIRI(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term) (iter.Iterator, types.Cardinality, error) {
	s, o := subject, object
	if e.Reversed {
		s, o = object, subject
	}
	scan, err := iter.NewScan(ctx, d.Adapter, types.Triple{Subject: s, Predicate: e.IRI, Object: o, Graph: d.Graph}, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "compiling IRI path step")
	}
	return scan, scan.Cardinality(), nil
}

// compileNegated is the negated-property-set leaf !(p1|…|pk)
// (spec.md §4.3): a scan with a fresh predicate variable, filtered to
// exclude every named predicate. Reverse-negated elements are rejected
// by the parser before an Expr ever reaches this compiler.
func compileNegated(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term) (iter.Iterator, types.Cardinality, error) {
	s, o := subject, object
	if e.Reversed {
		s, o = object, subject
	}
	predVar := d.freshVar("negPred")
	scan, err := iter.NewScan(ctx, d.Adapter, types.Triple{Subject: s, Predicate: predVar, Object: o, Graph: d.Graph}, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "compiling negated property set")
	}
	filtered, err := iter.NewFilter(scan, negatedFilterExpression(predVar, e.Negated), d.Registry)
	if err != nil {
		return nil, 0, errors.Wrap(err, "compiling negated property set filter")
	}
	return filtered, scan.Cardinality(), nil
}

// negatedFilterExpression renders "?predVar != <p1> && ?predVar != <p2> && …"
// for the Filter operator's textual expression form (create_equality_expr's
// inverse, one inequality conjunction per excluded predicate).
func negatedFilterExpression(predVar types.Term, excluded []types.Term) string {
	parts := make([]string, len(excluded))
	for i, p := range excluded {
		parts[i] = fmt.Sprintf("%s != <%s>", predVar, p)
	}
	return strings.Join(parts, " && ")
}

// compileSequence is P1/P2/…/Pn: a left-deep join chain through fresh
// intermediate variables, each part's own Compile run independently
// (a deliberate simplification from the grounding source's full
// BGP-selectivity re-sort over a sequence's sub-triples: this join
// order always respects the sequence's own left-to-right
// dependencies, at the cost of occasionally not being the globally
// most selective order).
func compileSequence(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term, boundVars map[types.Term]bool) (iter.Iterator, types.Cardinality, error) {
	if len(e.Parts) == 0 {
		return nil, 0, errors.New("path: empty sequence")
	}
	endpoints := make([]types.Term, len(e.Parts)+1)
	endpoints[0] = subject
	endpoints[len(endpoints)-1] = object
	for i := 1; i < len(endpoints)-1; i++ {
		endpoints[i] = d.freshVar("seq")
	}

	var pipeline iter.Iterator
	var card types.Cardinality
	bound := cloneBoundVars(boundVars)
	for i, part := range e.Parts {
		// By the time part i runs in the left-deep chain, endpoints[i]
		// has already been bound — either a constant, or the previous
		// step's join output — so a nested Mul here can rely on it.
		bound[endpoints[i]] = true
		step, stepCard, err := compile(ctx, d, endpoints[i], part, endpoints[i+1], bound)
		if err != nil {
			return nil, 0, err
		}
		if pipeline == nil {
			pipeline, card = step, stepCard
			continue
		}
		pipeline = iter.NewJoin(pipeline, step)
		if stepCard < card {
			card = stepCard
		}
	}
	return pipeline, card, nil
}

// compileAlternative is P1|P2|…|Pn: a bag-union chain, cardinality
// summed across branches.
func compileAlternative(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term, boundVars map[types.Term]bool) (iter.Iterator, types.Cardinality, error) {
	if len(e.Parts) == 0 {
		return nil, 0, errors.New("path: empty alternative")
	}
	var pipeline iter.Iterator
	var card types.Cardinality
	for _, part := range e.Parts {
		branch, branchCard, err := compile(ctx, d, subject, part, object, boundVars)
		if err != nil {
			return nil, 0, err
		}
		if pipeline == nil {
			pipeline, card = branch, branchCard
			continue
		}
		pipeline = iter.NewUnion(pipeline, branch)
		card += branchCard
	}
	return pipeline, card, nil
}

// compileMul is P?, P+, or P*: a bounded transitive closure, unioned
// with the reflexive-closure operator when the modifier admits a
// zero-length path (spec.md §4.3).
//
// Direction is chosen once, at compile time, the same way the
// grounding join builder picks it: walk forward if the subject is
// already fixed (a constant, or a variable bound earlier in the
// enclosing BGP); otherwise walk backward if the object is fixed;
// otherwise default to forward. Walking backward means inverting the
// inner expression and swapping which endpoint the closure treats as
// its root, rather than teaching Closure itself about direction.
func compileMul(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term, boundVars map[types.Term]bool) (iter.Iterator, types.Cardinality, error) {
	forward := true
	switch {
	case !subject.IsVariable():
		forward = true
	case !object.IsVariable():
		forward = false
	case boundVars[subject]:
		forward = true
	case boundVars[object]:
		forward = false
	default:
		forward = true
	}

	root, dest := subject, object
	inner := *e.Inner
	if !forward {
		root, dest = object, subject
		inner = pushInverse(inner, true)
	}

	minDepth := 0
	if e.PathMod == OneOrMore {
		minDepth = 1
	}
	maxDepth := d.Limits.MaxDepth(ctx, d.Graph)
	if e.PathMod == ZeroOrOne {
		maxDepth = 1
	}

	pathSpec, err := encodeExpr(inner)
	if err != nil {
		return nil, 0, err
	}
	factory := newClosureFactory(d, inner)
	tc, err := iter.NewClosure(ctx, d.nextClosureID(), root, factory, dest, minDepth, maxDepth, pathSpec)
	if err != nil {
		return nil, 0, errors.Wrap(err, "compiling transitive closure")
	}

	card, err := estimateMulCardinality(ctx, d, root, inner)
	if err != nil {
		return nil, 0, err
	}

	var pipeline iter.Iterator = tc
	if minDepth == 0 {
		spo, err := iter.NewScan(ctx, d.Adapter, types.Triple{Subject: "?s", Predicate: "?p", Object: "?o", Graph: d.Graph}, nil)
		if err != nil {
			return nil, 0, errors.Wrap(err, "compiling reflexive scan")
		}
		refl := iter.NewReflexive(subject, object, spo)
		pipeline = iter.NewUnion(tc, refl)
	}
	return pipeline, card, nil
}

func estimateMulCardinality(ctx context.Context, d *Deps, root types.Term, inner Expr) (types.Cardinality, error) {
	if !root.IsVariable() {
		return Estimate(ctx, d, root, inner, "?_mulObj")
	}
	return Estimate(ctx, d, "?_mulSubj", inner, "?_mulObj")
}

func cloneBoundVars(in map[types.Term]bool) map[types.Term]bool {
	out := make(map[types.Term]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
