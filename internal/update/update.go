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

// Package update implements the C7 update operators (spec.md §4.7):
// InsertData/DeleteData (atomic quad-list mutations), SerializableUpdate
// (a Modify pipeline owning its own WHERE-clause read side plus delete
// and insert templates), and the IfExists-guarded sequence used for
// fully-bound WHERE clauses. Every operator here is itself an
// iter.Iterator, so the C6 scheduler drives updates with exactly the
// same pull loop it uses for queries.
package update

import (
	"context"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// InsertDataTag identifies InsertData's Frame variant.
const InsertDataTag = "insert_data"

// QuadFrame is the shared continuation shape for InsertData/DeleteData:
// the full quad list plus how many have already been applied.
type QuadFrame struct {
	Quads     []types.Triple
	Graph     types.Term
	Applied   int
	IsDelete  bool
	Delivered bool
}

// Tag implements iter.Frame.
func (f QuadFrame) Tag() string {
	if f.IsDelete {
		return DeleteDataTag
	}
	return InsertDataTag
}

// DeleteDataTag identifies DeleteData's Frame variant.
const DeleteDataTag = "delete_data"

// QuadMutation is InsertData/DeleteData: atomically applies every quad
// in Quads to Graph in a single next call, no-opping on
// already-present/already-absent quads (spec.md §4.7). It never yields
// a mapping; like Construct it is driven purely for its effect.
type QuadMutation struct {
	adapter   types.StorageAdapter
	quads     []types.Triple
	graph     types.Term
	isDelete  bool
	applied   int
	delivered bool
}

var _ iter.Iterator = (*QuadMutation)(nil)
var _ iter.Sink = (*QuadMutation)(nil)

// NewInsertData constructs an InsertData over quads against graph.
func NewInsertData(adapter types.StorageAdapter, graph types.Term, quads []types.Triple) *QuadMutation {
	return &QuadMutation{adapter: adapter, graph: graph, quads: quads}
}

// NewDeleteData constructs a DeleteData over quads against graph.
func NewDeleteData(adapter types.StorageAdapter, graph types.Term, quads []types.Triple) *QuadMutation {
	return &QuadMutation{adapter: adapter, graph: graph, quads: quads, isDelete: true}
}

// LoadQuadMutation reconstructs a QuadMutation from a frame.
func LoadQuadMutation(adapter types.StorageAdapter, f *QuadFrame) *QuadMutation {
	return &QuadMutation{
		adapter: adapter, quads: f.Quads, graph: f.Graph,
		isDelete: f.IsDelete, applied: f.Applied, delivered: f.Delivered,
	}
}

// HasNext implements iter.Iterator.
func (m *QuadMutation) HasNext(context.Context) bool { return !m.delivered }

// Next implements iter.Iterator: the whole quad list is applied across
// one call, per spec.md §4.7 ("driven by a single next call... they do
// not yield intermediate results").
func (m *QuadMutation) Next(ctx context.Context) (types.Mapping, error) {
	if m.delivered {
		return nil, nil
	}
	for ; m.applied < len(m.quads); m.applied++ {
		var err error
		if m.isDelete {
			err = m.adapter.DeleteQuad(ctx, m.graph, m.quads[m.applied])
		} else {
			err = m.adapter.InsertQuad(ctx, m.graph, m.quads[m.applied])
		}
		if err != nil {
			return nil, err
		}
	}
	m.delivered = true
	return nil, nil
}

// NextStage implements iter.Iterator.
func (m *QuadMutation) NextStage(context.Context, types.Mapping) error {
	m.applied = 0
	m.delivered = false
	return nil
}

// Save implements iter.Iterator.
func (m *QuadMutation) Save() iter.Frame {
	return &QuadFrame{Quads: m.quads, Graph: m.graph, Applied: m.applied, IsDelete: m.isDelete, Delivered: m.delivered}
}

// SerializedName implements iter.Iterator.
func (m *QuadMutation) SerializedName() string {
	if m.isDelete {
		return DeleteDataTag
	}
	return InsertDataTag
}

// Done implements iter.Sink.
func (m *QuadMutation) Done() bool { return m.delivered }
