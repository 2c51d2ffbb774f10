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

package config

import (
	"context"

	"github.com/sageql/sageql/internal/types"
)

// Registry holds the configuration for every graph this process
// serves, keyed by graph name. It implements types.GraphLimits so C3
// can look up a graph's configured closure depth bound without
// depending on internal/config's Graph type directly.
type Registry struct {
	graphs map[string]*Graph
}

// NewRegistry builds a Registry from a set of graph configurations.
func NewRegistry(graphs ...*Graph) *Registry {
	r := &Registry{graphs: make(map[string]*Graph, len(graphs))}
	for _, g := range graphs {
		r.graphs[g.Name] = g
	}
	return r
}

// Graph returns the named graph's configuration, if known.
func (r *Registry) Graph(name string) (*Graph, bool) {
	g, ok := r.graphs[name]
	return g, ok
}

// MaxDepth implements types.GraphLimits. An unknown graph falls back
// to the spec-mandated default rather than panicking — the scan over
// it will already report empty per spec.md §4.2, so the depth bound
// is moot.
func (r *Registry) MaxDepth(_ context.Context, graph types.Term) int {
	if g, ok := r.graphs[string(graph)]; ok {
		return g.MaxDepth
	}
	return defaultMaxDepth
}
