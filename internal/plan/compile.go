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
	"fmt"

	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/path"
	"github.com/sageql/sageql/internal/types"
)

// Compile walks node and produces a physical pipeline. The set of
// variables each subtree binds (used by an enclosing Join/Extend to
// track connectivity/shadowing as the tree is built) is tracked by
// compile internally and is not returned.
func Compile(ctx context.Context, d *path.Deps, node Node) (iter.Iterator, error) {
	it, _, err := compile(ctx, d, node, map[types.Term]bool{})
	return it, err
}

func compile(ctx context.Context, d *path.Deps, node Node, boundVars map[types.Term]bool) (iter.Iterator, map[types.Term]bool, error) {
	switch n := node.(type) {
	case *SelectQuery:
		d.Graph = n.Graph
		return compile(ctx, d, n.Body, boundVars)

	case *ConstructQuery:
		d.Graph = n.Graph
		child, _, err := compile(ctx, d, n.Body, boundVars)
		if err != nil {
			return nil, nil, err
		}
		return iter.NewConstruct(child, n.Template), boundVars, nil

	case *Project:
		child, bound, err := compile(ctx, d, n.Body, boundVars)
		if err != nil {
			return nil, nil, err
		}
		return iter.NewProjection(child, n.Vars), bound, nil

	case *Reduced:
		child, bound, err := compile(ctx, d, n.Body, boundVars)
		if err != nil {
			return nil, nil, err
		}
		return iter.NewReduced(child, n.Cap), bound, nil

	case *BGP:
		bound := cloneBound(boundVars)
		pipeline, err := buildBGP(ctx, d, n.Patterns, bound)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range n.Patterns {
			markBound(bound, p)
		}
		return pipeline, bound, nil

	case *Union:
		left, leftBound, err := compile(ctx, d, n.Left, boundVars)
		if err != nil {
			return nil, nil, err
		}
		right, rightBound, err := compile(ctx, d, n.Right, boundVars)
		if err != nil {
			return nil, nil, err
		}
		bound := cloneBound(leftBound)
		for v := range rightBound {
			bound[v] = true
		}
		return iter.NewUnion(left, right), bound, nil

	case *Filter:
		child, bound, err := compile(ctx, d, n.Body, boundVars)
		if err != nil {
			return nil, nil, err
		}
		f, err := iter.NewFilter(child, n.Expression, d.Registry)
		if err != nil {
			return nil, nil, err
		}
		return f, bound, nil

	case *Extend:
		if n.Body == nil {
			b, err := iter.NewBind(nil, n.Var, n.Expression, d.Registry)
			if err != nil {
				return nil, nil, err
			}
			bound := cloneBound(boundVars)
			bound[n.Var] = true
			return b, bound, nil
		}
		child, bound, err := compile(ctx, d, n.Body, boundVars)
		if err != nil {
			return nil, nil, err
		}
		b, err := iter.NewBind(child, n.Var, n.Expression, d.Registry)
		if err != nil {
			return nil, nil, err
		}
		bound[n.Var] = true
		return b, bound, nil

	case *Join:
		patterns := append(append([]Pattern(nil), n.Left.Patterns...), n.Right.Patterns...)
		bound := cloneBound(boundVars)
		pipeline, err := buildBGP(ctx, d, patterns, bound)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range patterns {
			markBound(bound, p)
		}
		return pipeline, bound, nil

	case nil:
		return nil, nil, &engineerr.UnsupportedSPARQLError{Feature: "nil algebra node"}

	default:
		return nil, nil, &engineerr.UnsupportedSPARQLError{Feature: fmt.Sprintf("algebra node %T", n)}
	}
}
