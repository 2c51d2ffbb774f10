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

package update_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/snapshot"
	"github.com/sageql/sageql/internal/storage/memstore"
	"github.com/sageql/sageql/internal/types"
	"github.com/sageql/sageql/internal/update"
)

const isa = types.Term("http://isa")

// Scenario 5 from spec.md §8: InsertData is a no-op the second time
// the same quad is applied.
func TestInsertDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New("g")
	quad := types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`}

	for i := 0; i < 2; i++ {
		op := update.NewInsertData(adapter, "g", []types.Triple{quad})
		for op.HasNext(ctx) {
			_, err := op.Next(ctx)
			require.NoError(t, err)
		}
	}

	cursor, card, err := adapter.Search(ctx, types.Triple{Subject: "?s", Predicate: "?p", Object: "?o", Graph: "g"}, "", snapshot.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, card)
	assert.True(t, cursor.HasNext(ctx))
}

func TestDeleteDataRemovesQuad(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New("g")
	quad := types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`}
	adapter.Seed("g", quad)

	op := update.NewDeleteData(adapter, "g", []types.Triple{quad})
	for op.HasNext(ctx) {
		_, err := op.Next(ctx)
		require.NoError(t, err)
	}

	_, card, err := adapter.Search(ctx, types.Triple{Subject: "?s", Predicate: "?p", Object: "?o", Graph: "g"}, "", snapshot.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, card)
}

// IfExists-guarded sequence (spec.md §4.7): when the probe finds no
// match, neither the delete nor the insert runs.
func TestUpdateSequenceSkipsWhenProbeEmpty(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New("g")

	probe, err := iter.NewScan(ctx, adapter, types.Triple{Subject: "http://nobody", Predicate: isa, Object: "?o", Graph: "g"}, nil)
	require.NoError(t, err)
	ifExists := update.NewIfExistsOperator(probe)

	insertQuad := types.Triple{Subject: "http://new", Predicate: isa, Object: `"thing"`}
	ins := update.NewInsertData(adapter, "g", []types.Triple{insertQuad})
	del := update.NewDeleteData(adapter, "g", nil)

	seq := update.NewUpdateSequenceOperator(ifExists, del, ins)
	for seq.HasNext(ctx) {
		_, err := seq.Next(ctx)
		require.NoError(t, err)
	}

	assert.False(t, quadPresent(ctx, adapter, insertQuad))
}

func TestUpdateSequenceRunsWhenProbeMatches(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New("g")
	existing := types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`}
	adapter.Seed("g", existing)

	probe, err := iter.NewScan(ctx, adapter, existing, nil)
	require.NoError(t, err)
	ifExists := update.NewIfExistsOperator(probe)

	insertQuad := types.Triple{Subject: "http://new", Predicate: isa, Object: `"thing"`}
	ins := update.NewInsertData(adapter, "g", []types.Triple{insertQuad})
	del := update.NewDeleteData(adapter, "g", []types.Triple{existing})

	seq := update.NewUpdateSequenceOperator(ifExists, del, ins)
	for seq.HasNext(ctx) {
		_, err := seq.Next(ctx)
		require.NoError(t, err)
	}

	assert.True(t, quadPresent(ctx, adapter, insertQuad))
	assert.False(t, quadPresent(ctx, adapter, existing))
}

func quadPresent(ctx context.Context, adapter types.StorageAdapter, q types.Triple) bool {
	_, card, err := adapter.Search(ctx, q, "", snapshot.Time{})
	if err != nil {
		return false
	}
	return card > 0
}
