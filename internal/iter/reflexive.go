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

	"github.com/sageql/sageql/internal/types"
)

// ReflexiveTag identifies the Reflexive operator's Frame variant.
const ReflexiveTag = "reflexive_closure"

// ReflexiveFrame is Reflexive's continuation piece.
type ReflexiveFrame struct {
	Subject        types.Term
	Object         types.Term
	Child          Frame // the ?s ?p ?o scan used only when both endpoints are variables
	CurrentBinding types.Mapping
	Mu             types.Mapping
	Done           bool
	Visited        []types.Term
}

// Tag implements Frame.
func (ReflexiveFrame) Tag() string { return ReflexiveTag }

// Reflexive evaluates the zero-length-path case of a `*`/`?` property
// path (spec.md §4.2, "Reflexive closure"): it binds unbound endpoints
// so that subject equals object, special-casing the six combinations
// of bound/unbound endpoints. When both endpoints are variables it
// drives child, a scan over every `?s ?p ?o` triple, and emits each
// distinct node once.
type Reflexive struct {
	subject types.Term
	object  types.Term
	child   Iterator // only consulted when both endpoints are variables

	currentBinding types.Mapping
	mu             types.Mapping
	done           bool
	visited        map[types.Term]struct{}
}

var _ Iterator = (*Reflexive)(nil)

// NewReflexive constructs a Reflexive over the given endpoints. child
// may be nil unless both subject and object are variables.
func NewReflexive(subject, object types.Term, child Iterator) *Reflexive {
	return &Reflexive{subject: subject, object: object, child: child, visited: make(map[types.Term]struct{})}
}

// LoadReflexive reconstructs a Reflexive from a frame and its
// (possibly nil) rehydrated child.
func LoadReflexive(f *ReflexiveFrame, child Iterator) *Reflexive {
	visited := make(map[types.Term]struct{}, len(f.Visited))
	for _, v := range f.Visited {
		visited[v] = struct{}{}
	}
	return &Reflexive{
		subject: f.Subject, object: f.Object, child: child,
		currentBinding: f.CurrentBinding, mu: f.Mu, done: f.Done, visited: visited,
	}
}

// HasNext implements Iterator.
func (r *Reflexive) HasNext(ctx context.Context) bool {
	if r.done {
		return false
	}
	if r.mu != nil {
		return true
	}
	if r.subject.IsVariable() && r.object.IsVariable() {
		return r.child.HasNext(ctx)
	}
	return true
}

// Next implements Iterator.
func (r *Reflexive) Next(ctx context.Context) (types.Mapping, error) {
	if !r.HasNext(ctx) {
		return nil, nil
	}

	if !r.subject.IsVariable() && !r.object.IsVariable() {
		r.done = true
		if r.subject == r.object {
			return types.Mapping{}, nil
		}
		return nil, nil
	}
	if !r.subject.IsVariable() && r.object.IsVariable() {
		r.done = true
		if r.currentBinding != nil {
			if v, ok := r.currentBinding[r.object]; ok {
				if r.subject == v {
					return types.Mapping{}, nil
				}
				return nil, nil
			}
		}
		return types.Mapping{r.object: r.subject}, nil
	}
	if r.subject.IsVariable() && !r.object.IsVariable() {
		r.done = true
		if r.currentBinding != nil {
			if v, ok := r.currentBinding[r.subject]; ok {
				if r.object == v {
					return types.Mapping{}, nil
				}
				return nil, nil
			}
		}
		return types.Mapping{r.subject: r.object}, nil
	}

	// Both endpoints are variables.
	_, subjBound := r.currentBinding[r.subject]
	_, objBound := r.currentBinding[r.object]
	if r.currentBinding == nil || (!subjBound && !objBound) {
		var node types.Term
		if r.mu == nil {
			m, err := r.child.Next(ctx)
			if err != nil {
				return nil, err
			}
			if m == nil {
				return nil, nil
			}
			r.mu = m
			node = m["?s"]
		} else {
			node = r.mu["?o"]
			r.mu = nil
		}
		if _, seen := r.visited[node]; seen {
			return nil, nil
		}
		r.visited[node] = struct{}{}
		return types.Mapping{r.subject: node, r.object: node}, nil
	}

	// At least one endpoint is already bound by the outer context.
	if subjBound && objBound {
		r.done = true
		if r.currentBinding[r.subject] == r.currentBinding[r.object] {
			return types.Mapping{}, nil
		}
		return nil, nil
	}
	if subjBound {
		r.done = true
		node := r.currentBinding[r.subject]
		return types.Mapping{r.subject: node, r.object: node}, nil
	}
	r.done = true
	node := r.currentBinding[r.object]
	return types.Mapping{r.subject: node, r.object: node}, nil
}

// NextStage implements Iterator. Per the grounding source, the shared
// node-enumeration scan is not rebuilt here — only the per-outer-tuple
// state (binding, pending half-tuple, done flag, visited set) resets.
func (r *Reflexive) NextStage(_ context.Context, binding types.Mapping) error {
	r.currentBinding = binding
	r.mu = nil
	r.done = false
	r.visited = make(map[types.Term]struct{})
	return nil
}

// Save implements Iterator.
func (r *Reflexive) Save() Frame {
	visited := make([]types.Term, 0, len(r.visited))
	for v := range r.visited {
		visited = append(visited, v)
	}
	f := &ReflexiveFrame{
		Subject: r.subject, Object: r.object,
		CurrentBinding: r.currentBinding, Mu: r.mu, Done: r.done, Visited: visited,
	}
	if r.child != nil {
		f.Child = r.child.Save()
	}
	return f
}

// SerializedName implements Iterator.
func (r *Reflexive) SerializedName() string { return ReflexiveTag }
