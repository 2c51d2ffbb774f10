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

package sched_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/sched"
	"github.com/sageql/sageql/internal/storage/memstore"
	"github.com/sageql/sageql/internal/types"
)

const isa = types.Term("http://isa")

func fiveTripleGraph() *memstore.Store {
	s := memstore.New("tests/data/context")
	s.Seed("tests/data/context",
		types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`},
		types.Triple{Subject: "http://mickey", Predicate: isa, Object: `"mouse"`},
		types.Triple{Subject: "http://goofy", Predicate: isa, Object: `"dog"`},
		types.Triple{Subject: "http://pluto", Predicate: isa, Object: `"dog"`},
		types.Triple{Subject: "http://daisy", Predicate: isa, Object: `"duck"`},
	)
	return s
}

func newScan(t *testing.T, adapter types.StorageAdapter) *iter.Scan {
	t.Helper()
	s, err := iter.NewScan(context.Background(), adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: "tests/data/context",
	}, nil)
	require.NoError(t, err)
	return s
}

// Scenario 1 from spec.md §8: 5 bindings, no duplicates, regardless of
// how many quanta it takes. A production quantum always carries a
// positive Budget alongside its Results cap (a zero Budget is its own,
// separate boundary case — see TestRunZeroQuantumSuspendsImmediately).
func TestRunDrainsAllResultsAcrossQuanta(t *testing.T) {
	adapter := fiveTripleGraph()
	scan := newScan(t, adapter)
	quantum := sched.Quantum{Budget: time.Second, Results: 2, Graph: "tests/data/context"}

	var all []types.Mapping
	result := sched.Run(context.Background(), scan, quantum)
	all = append(all, result.Mappings...)
	require.False(t, result.Done)
	require.Empty(t, result.Abort)

	for !result.Done {
		result = sched.Run(context.Background(), scan, quantum)
		all = append(all, result.Mappings...)
	}

	assert.Len(t, all, 5)
	seen := make(map[types.Term]bool)
	for _, m := range all {
		assert.False(t, seen[m["?s"]], "duplicate binding for %s", m["?s"])
		seen[m["?s"]] = true
	}
}

// Boundary behavior from spec.md §8: "Quantum = 0: first call yields
// zero results and a continuation equal (up to codec-equivalence) to
// the fresh pipeline." A zero Budget is an already-elapsed quantum, so
// Run must suspend before ever calling HasNext/Next on root, handing
// back a Frame identical to the one the untouched scan would itself
// produce.
func TestRunZeroQuantumSuspendsImmediately(t *testing.T) {
	adapter := fiveTripleGraph()
	scan := newScan(t, adapter)
	freshFrame := scan.Save()

	result := sched.Run(context.Background(), scan, sched.Quantum{Graph: "tests/data/context"})

	assert.False(t, result.Done)
	assert.Empty(t, result.Mappings)
	assert.Empty(t, result.Abort)
	assert.Equal(t, freshFrame, result.Frame)
}

func TestRunUnknownGraphYieldsNoResultsNoAbort(t *testing.T) {
	adapter := memstore.New()
	scan := newScan(t, adapter)

	result := sched.Run(context.Background(), scan, sched.Quantum{Budget: time.Second, Graph: "tests/data/context"})
	assert.True(t, result.Done)
	assert.Empty(t, result.Mappings)
	assert.Empty(t, result.Abort)
}
