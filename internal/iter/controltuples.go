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
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/types"
)

// ControlTuple is a frontier-node record emitted by Piggyback for one
// step of a Closure (spec.md §4.2, "Path collector"): the path
// pattern it belongs to, the outer context it was reached under, the
// node itself, how deep it is, the configured depth bound, and the
// traversal direction.
type ControlTuple struct {
	PatternID string
	Context   types.Mapping
	Node      types.Term
	Depth     int
	MaxDepth  int
	Forward   bool
}

func (c ControlTuple) isFrontier() bool { return c.Depth == c.MaxDepth }

// NodeDepth is one entry of a CompactControlTuple's node list.
type NodeDepth struct {
	Node  types.Term
	Depth int
}

// CompactControlTuple is the wire-facing, deduplicated form of a group
// of ControlTuples sharing a (pattern, context): one record carrying
// every {node, depth} pair discovered for that group so far.
type CompactControlTuple struct {
	PatternID string
	Context   types.Mapping
	MaxDepth  int
	Forward   bool
	Nodes     []NodeDepth
}

// ControlTuplesBuffer aggregates ControlTuples across every Piggyback
// in a pipeline, keyed by hash(pattern_id || context) (spec.md §4.2,
// "Control-tuples buffer"). It is per-pipeline, not shared across
// concurrently-scheduled plans.
type ControlTuplesBuffer struct {
	maxTuples     int // 0 means unbounded
	frontierNodes map[string]int
	tuples        map[string]map[types.Term]ControlTuple
	size          int
}

// NewControlTuplesBuffer constructs an empty buffer capped at
// maxTuples total entries (0 disables the cap).
func NewControlTuplesBuffer(maxTuples int) *ControlTuplesBuffer {
	return &ControlTuplesBuffer{
		maxTuples:     maxTuples,
		frontierNodes: make(map[string]int),
		tuples:        make(map[string]map[types.Term]ControlTuple),
	}
}

// CreateControlTuple builds a ControlTuple, cloning context so the
// buffer never aliases a caller's live mapping.
func (b *ControlTuplesBuffer) CreateControlTuple(patternID string, context types.Mapping, node types.Term, depth, maxDepth int, forward bool) ControlTuple {
	return ControlTuple{
		PatternID: patternID, Context: context.Clone(), Node: node,
		Depth: depth, MaxDepth: maxDepth, Forward: forward,
	}
}

func groupKey(ct ControlTuple) string {
	h := xxhash.New()
	_, _ = h.WriteString(ct.PatternID)
	_, _ = h.WriteString(ct.Context.CanonicalString())
	return strconv.FormatUint(h.Sum64(), 16)
}

// Add folds ct into its group, promoting the stored record to
// non-frontier if a fresher, shallower sighting of the same node
// arrives. It returns the group id (for Piggyback's bookkeeping of
// which groups to Clear) and a TooManyResultsError once the buffer
// exceeds its cap.
func (b *ControlTuplesBuffer) Add(ct ControlTuple) (string, error) {
	id := groupKey(ct)
	group, ok := b.tuples[id]
	if !ok {
		group = make(map[types.Term]ControlTuple)
		b.tuples[id] = group
		b.frontierNodes[id] = 0
	}
	if existing, exists := group[ct.Node]; !exists {
		group[ct.Node] = ct
		b.size++
		if ct.isFrontier() {
			b.frontierNodes[id]++
		}
	} else if !ct.isFrontier() && existing.isFrontier() {
		existing.Depth = ct.Depth
		group[ct.Node] = existing
		b.frontierNodes[id]--
	}
	if b.maxTuples > 0 && b.size > b.maxTuples {
		return id, &engineerr.TooManyResultsError{Cap: b.maxTuples}
	}
	return id, nil
}

// Clear drops a group once every frontier node within it has been
// resolved (its frontier count reached zero), per spec.md §4.2.
func (b *ControlTuplesBuffer) Clear(id string) {
	if b.frontierNodes[id] != 0 {
		return
	}
	b.size -= len(b.tuples[id])
	delete(b.tuples, id)
	delete(b.frontierNodes, id)
}

// Collect compresses the buffer's groups into one CompactControlTuple
// per group. If oneQuantum is true, only groups that still have an
// unresolved frontier node are reported (spec.md §4.2,
// "collect(one_quantum)").
func (b *ControlTuplesBuffer) Collect(oneQuantum bool) []CompactControlTuple {
	out := make([]CompactControlTuple, 0, len(b.tuples))
	for id, group := range b.tuples {
		if oneQuantum && b.frontierNodes[id] == 0 {
			continue
		}
		var compact CompactControlTuple
		first := true
		for _, ct := range group {
			if first {
				compact = CompactControlTuple{PatternID: ct.PatternID, Context: ct.Context, MaxDepth: ct.MaxDepth, Forward: ct.Forward}
				first = false
			}
			compact.Nodes = append(compact.Nodes, NodeDepth{Node: ct.Node, Depth: ct.Depth})
		}
		if !first {
			out = append(out, compact)
		}
	}
	return out
}

// Size reports the total number of distinct (group, node) entries
// currently held.
func (b *ControlTuplesBuffer) Size() int { return b.size }
