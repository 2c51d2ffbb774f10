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

package update

import (
	"context"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// ModifyTag identifies SerializableUpdate's Frame variant.
const ModifyTag = "modify"

// ModifyFrame is SerializableUpdate's continuation piece.
type ModifyFrame struct {
	Graph           types.Term
	DeleteTemplates []types.Triple
	InsertTemplates []types.Triple
	Read            iter.Frame
}

// Tag implements iter.Frame.
func (ModifyFrame) Tag() string { return ModifyTag }

// SerializableUpdate is the Modify operator (spec.md §4.7): it owns the
// WHERE-clause read pipeline and a pair of triple templates. Each
// solution pulled from read is substituted into the delete templates
// first, applied, then the insert templates, applied, giving per-row
// atomicity before the outer request commits.
type SerializableUpdate struct {
	adapter         types.StorageAdapter
	graph           types.Term
	read            iter.Iterator
	deleteTemplates []types.Triple
	insertTemplates []types.Triple
}

var _ iter.Iterator = (*SerializableUpdate)(nil)

// NewSerializableUpdate constructs a Modify operator over read, with
// the given ground-or-variable delete/insert templates.
func NewSerializableUpdate(adapter types.StorageAdapter, graph types.Term, read iter.Iterator, deleteTemplates, insertTemplates []types.Triple) *SerializableUpdate {
	return &SerializableUpdate{adapter: adapter, graph: graph, read: read, deleteTemplates: deleteTemplates, insertTemplates: insertTemplates}
}

// LoadSerializableUpdate reconstructs a Modify from a frame and its
// rehydrated read child.
func LoadSerializableUpdate(adapter types.StorageAdapter, f *ModifyFrame, read iter.Iterator) *SerializableUpdate {
	return &SerializableUpdate{
		adapter: adapter, graph: f.Graph, read: read,
		deleteTemplates: f.DeleteTemplates, insertTemplates: f.InsertTemplates,
	}
}

// HasNext implements iter.Iterator.
func (u *SerializableUpdate) HasNext(ctx context.Context) bool { return u.read.HasNext(ctx) }

// Next implements iter.Iterator.
func (u *SerializableUpdate) Next(ctx context.Context) (types.Mapping, error) {
	if !u.read.HasNext(ctx) {
		return nil, nil
	}
	mu, err := u.read.Next(ctx)
	if err != nil {
		return nil, err
	}
	if mu == nil {
		return nil, nil
	}
	for _, tmpl := range u.deleteTemplates {
		t, ok := instantiate(tmpl, mu)
		if !ok {
			continue
		}
		if err := u.adapter.DeleteQuad(ctx, u.graph, t); err != nil {
			return nil, err
		}
	}
	for _, tmpl := range u.insertTemplates {
		t, ok := instantiate(tmpl, mu)
		if !ok {
			continue
		}
		if err := u.adapter.InsertQuad(ctx, u.graph, t); err != nil {
			return nil, err
		}
	}
	return mu, nil
}

func instantiate(template types.Triple, mu types.Mapping) (types.Triple, bool) {
	s, ok1 := resolveTemplateTerm(template.Subject, mu)
	p, ok2 := resolveTemplateTerm(template.Predicate, mu)
	o, ok3 := resolveTemplateTerm(template.Object, mu)
	if !ok1 || !ok2 || !ok3 {
		return types.Triple{}, false
	}
	return types.Triple{Subject: s, Predicate: p, Object: o, Graph: template.Graph}, true
}

func resolveTemplateTerm(t types.Term, mu types.Mapping) (types.Term, bool) {
	if !t.IsVariable() {
		return t, true
	}
	v, ok := mu[t]
	return v, ok
}

// NextStage implements iter.Iterator.
func (u *SerializableUpdate) NextStage(ctx context.Context, binding types.Mapping) error {
	return u.read.NextStage(ctx, binding)
}

// Save implements iter.Iterator.
func (u *SerializableUpdate) Save() iter.Frame {
	return &ModifyFrame{
		Graph: u.graph, DeleteTemplates: u.deleteTemplates, InsertTemplates: u.insertTemplates,
		Read: u.read.Save(),
	}
}

// SerializedName implements iter.Iterator.
func (u *SerializableUpdate) SerializedName() string { return ModifyTag }
