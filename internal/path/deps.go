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
	"fmt"

	"github.com/sageql/sageql/internal/expr"
	"github.com/sageql/sageql/internal/types"
)

// Deps carries the backend handles the compiler needs to turn a path
// (or a BGP triple, from internal/plan) into a live operator tree:
// the storage adapter, the FILTER/BIND expression registry, the
// target named graph, and the graph's configured closure depth bound.
type Deps struct {
	Adapter  types.StorageAdapter
	Registry *expr.Registry
	Graph    types.Term
	Limits   types.GraphLimits

	fresh      int
	closureSeq int
}

// NewDeps constructs a Deps for compiling against graph.
func NewDeps(adapter types.StorageAdapter, registry *expr.Registry, graph types.Term, limits types.GraphLimits) *Deps {
	return &Deps{Adapter: adapter, Registry: registry, Graph: graph, Limits: limits}
}

// freshVar mints a variable name guaranteed unused elsewhere in the
// compiled plan, for intermediate join variables (spec.md §4.3,
// "fresh intermediate variables ?seq_k" / "?star_id_k").
func (d *Deps) freshVar(prefix string) types.Term {
	d.fresh++
	return types.Term(fmt.Sprintf("?%s_%d", prefix, d.fresh))
}

// nextClosureID assigns each Closure operator in the plan a distinct
// id, used to name its depth bookkeeping variable (spec.md §4.2's
// `_depth{id}`) so that nested or sibling closures never collide.
func (d *Deps) nextClosureID() int {
	d.closureSeq++
	return d.closureSeq
}
