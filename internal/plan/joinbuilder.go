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

package plan

import (
	"context"
	"sort"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/path"
	"github.com/sageql/sageql/internal/types"
)

// scored is one BGP pattern paired with its estimated cardinality,
// tracked together through the selectivity sort and the connected-
// pattern growth phase (grounded on join_builder.py's
// build_left_join_tree).
type scored struct {
	pattern Pattern
	card    types.Cardinality
	placed  bool
}

// buildBGP compiles a conjunction of triple patterns into a left-deep
// index-nested-loop join tree, ordered by ascending cardinality with a
// connectivity preference (spec.md §4.4): start with the most
// selective pattern; repeatedly pick the next pattern that shares a
// variable with the variables already bound by the growing pipeline,
// breaking ties by cardinality; if no connected pattern remains (a
// disconnected BGP), fall back to the next most selective one
// regardless of connectivity.
func buildBGP(ctx context.Context, d *path.Deps, patterns []Pattern, boundVars map[types.Term]bool) (iter.Iterator, error) {
	if len(patterns) == 0 {
		return iter.NewEmpty(), nil
	}

	scores := make([]*scored, len(patterns))
	for i, p := range patterns {
		card, err := path.Estimate(ctx, d, p.Subject, p.pathExpr(), p.Object)
		if err != nil {
			return nil, err
		}
		scores[i] = &scored{pattern: p, card: card}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].card < scores[j].card })

	bound := cloneBound(boundVars)
	first := scores[0]
	first.placed = true
	pipeline, _, err := path.Compile(ctx, d, first.pattern.Subject, first.pattern.pathExpr(), first.pattern.Object, bound)
	if err != nil {
		return nil, err
	}
	markBound(bound, first.pattern)

	remaining := len(scores) - 1
	for remaining > 0 {
		next := pickConnected(scores, bound)
		next.placed = true
		step, _, err := path.Compile(ctx, d, next.pattern.Subject, next.pattern.pathExpr(), next.pattern.Object, bound)
		if err != nil {
			return nil, err
		}
		markBound(bound, next.pattern)
		pipeline = iter.NewJoin(pipeline, step)
		remaining--
	}
	return pipeline, nil
}

// pickConnected returns the not-yet-placed pattern of least
// cardinality that shares a variable with bound, or — if none is
// connected — the not-yet-placed pattern of least cardinality overall
// (scores is already sorted ascending by cardinality, so the first
// unplaced entry satisfying each condition is the right pick).
func pickConnected(scores []*scored, bound map[types.Term]bool) *scored {
	for _, s := range scores {
		if s.placed {
			continue
		}
		if sharesVar(s.pattern, bound) {
			return s
		}
	}
	for _, s := range scores {
		if !s.placed {
			return s
		}
	}
	return nil
}

func sharesVar(p Pattern, bound map[types.Term]bool) bool {
	for _, v := range p.vars() {
		if bound[v] {
			return true
		}
	}
	return false
}

func markBound(bound map[types.Term]bool, p Pattern) {
	for _, v := range p.vars() {
		bound[v] = true
	}
}

func cloneBound(in map[types.Term]bool) map[types.Term]bool {
	out := make(map[types.Term]bool, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	return out
}
