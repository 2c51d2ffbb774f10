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
	"fmt"
	"strconv"

	"github.com/sageql/sageql/internal/types"
)

// ClosureTag identifies the Closure operator's Frame variant.
const ClosureTag = "transitive_closure"

// unboundSource is the sentinel passed to a PathFactory to mean "the
// one-hop path should enumerate from every node", i.e. the closure's
// subject is itself unbound at this point in evaluation.
const unboundSource = types.Term("")

// PathFactory builds the single one-hop iterator that Closure
// re-stages at each depth of its search. New builds a fresh instance
// rooted at source (unboundSource for "no fixed source yet"); Load
// rebuilds one from a frame previously produced by that same
// iterator's Save, as recorded on Closure's stack.
type PathFactory interface {
	New(ctx context.Context, source types.Term) (Iterator, error)
	Load(ctx context.Context, frame Frame) (Iterator, error)
}

// ClosureFrame is Closure's continuation piece: the stack of
// per-depth frozen one-hop iterator frames, the per-depth last
// binding, and the visited-node memory (spec.md §4.2, "Transitive
// closure").
type ClosureFrame struct {
	ID        int
	Subject   types.Term
	Object    types.Term
	Stack     []Frame
	Bindings  []types.Mapping
	MinDepth  int
	MaxDepth  int
	Complete  bool
	HasSource bool
	Source    types.Term
	HasGoal   bool
	Goal      types.Term
	Visited   []VisitedPair
	// PathSpec is an opaque, codec-owned encoding of the compiled
	// property-path subexpression this Closure walks. Closure never
	// interprets it; it only round-trips it so that C5 can rebuild the
	// matching PathFactory on decode without internal/iter depending on
	// internal/path.
	PathSpec []byte
}

// VisitedPair is one (source, node) entry of the visited-node memory.
type VisitedPair struct {
	Source types.Term
	Node   types.Term
}

// Tag implements Frame.
func (ClosureFrame) Tag() string { return ClosureTag }

// Closure evaluates the transitive closure of a property-path
// subexpression by bounded depth-first iterative deepening (spec.md
// §4.2). It maintains a stack of frozen one-hop-iterator frames, one
// per depth, popping the top to advance and pushing a freshly
// reparameterized one-hop iterator whenever a new node is discovered
// and the depth bound allows it. A per-root-source visited set
// prevents re-expanding a node already reached from that source.
type Closure struct {
	id      int
	subject types.Term
	object  types.Term
	factory PathFactory
	// pathSpec is carried opaquely between Save and LoadClosure; see
	// ClosureFrame.PathSpec.
	pathSpec []byte

	stack    []Frame
	bindings []types.Mapping // length maxDepth+1; bindings[d] is depth d's last result
	minDepth int
	maxDepth int
	complete bool

	source *types.Term // non-nil once the root source is fixed (constant subject, or learned via NextStage)
	goal   *types.Term // non-nil once the destination is fixed

	visited map[types.Term]map[types.Term]struct{}

	lastNode  types.Term
	lastDepth int
	lastFinal bool
	lastValid bool
}

var _ Iterator = (*Closure)(nil)

// NewClosure constructs a Closure over subject/object using factory to
// build the one-hop path iterator, per spec.md §4.2's "maintain a
// stack of inner iterators I[0..D]".
func NewClosure(ctx context.Context, id int, subject types.Term, factory PathFactory, object types.Term, minDepth, maxDepth int, pathSpec []byte) (*Closure, error) {
	c := &Closure{
		id: id, subject: subject, object: object, factory: factory, pathSpec: pathSpec,
		bindings: make([]types.Mapping, maxDepth+1),
		minDepth: minDepth, maxDepth: maxDepth, complete: true,
		visited: make(map[types.Term]map[types.Term]struct{}),
	}
	src := unboundSource
	if !subject.IsVariable() {
		s := subject
		c.source = &s
		src = subject
	}
	if !object.IsVariable() {
		g := object
		c.goal = &g
	}
	first, err := factory.New(ctx, src)
	if err != nil {
		return nil, err
	}
	c.stack = []Frame{first.Save()}
	return c, nil
}

// LoadClosure reconstructs a Closure from a frame. The stack's frames
// are not rehydrated into live iterators until Next pops and loads
// them, mirroring the grounding source's lazy `loader.load` on pop.
func LoadClosure(f *ClosureFrame, factory PathFactory) *Closure {
	bindings := append([]types.Mapping(nil), f.Bindings...)
	visited := make(map[types.Term]map[types.Term]struct{})
	for _, p := range f.Visited {
		set, ok := visited[p.Source]
		if !ok {
			set = make(map[types.Term]struct{})
			visited[p.Source] = set
		}
		set[p.Node] = struct{}{}
	}
	c := &Closure{
		id: f.ID, subject: f.Subject, object: f.Object, factory: factory, pathSpec: f.PathSpec,
		stack: append([]Frame(nil), f.Stack...), bindings: bindings,
		minDepth: f.MinDepth, maxDepth: f.MaxDepth, complete: f.Complete,
		visited: visited,
	}
	if f.HasSource {
		s := f.Source
		c.source = &s
	}
	if f.HasGoal {
		g := f.Goal
		c.goal = &g
	}
	return c
}

// HasNext implements Iterator.
func (c *Closure) HasNext(context.Context) bool { return len(c.stack) > 0 }

// Next implements Iterator.
func (c *Closure) Next(ctx context.Context) (types.Mapping, error) {
	c.lastValid = false
	if len(c.stack) == 0 {
		return nil, nil
	}

	frame := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	depth := len(c.stack)
	c.bindings[depth] = nil

	iterator, err := c.factory.Load(ctx, frame)
	if err != nil {
		return nil, err
	}
	if !iterator.HasNext(ctx) {
		// This depth is exhausted: do not push it back, which backtracks
		// to the parent depth on the next call.
		return nil, nil
	}

	mu, err := iterator.Next(ctx)
	if err != nil {
		return nil, err
	}
	c.bindings[depth] = mu
	c.stack = append(c.stack, iterator.Save())
	if mu == nil {
		return nil, nil
	}

	node := mu["?node"]
	source := c.getSource()
	if !c.mustExplore(source, node) {
		c.bindings[depth] = nil
		return nil, nil
	}
	c.markVisited(source, node)

	if len(c.stack) < c.maxDepth {
		next, err := c.factory.New(ctx, node)
		if err != nil {
			return nil, err
		}
		c.stack = append(c.stack, next.Save())
	} else {
		c.complete = false
	}

	final := c.isSolution(node)
	c.lastNode, c.lastDepth, c.lastFinal, c.lastValid = node, depth, final, true
	if !final {
		return nil, nil
	}
	out := types.Mapping{}
	if c.subject.IsVariable() {
		out[c.subject] = source
	}
	if c.object.IsVariable() {
		out[c.object] = node
	}
	out[depthVar(c.id)] = types.Term(strconv.Itoa(depth))
	return out, nil
}

func depthVar(id int) types.Term {
	return types.Term(fmt.Sprintf("_depth%d", id))
}

func (c *Closure) getSource() types.Term {
	if c.source != nil {
		return *c.source
	}
	if c.bindings[0] != nil {
		return c.bindings[0]["?source"]
	}
	return ""
}

func (c *Closure) mustExplore(source, node types.Term) bool {
	set, ok := c.visited[source]
	if !ok {
		return true
	}
	_, seen := set[node]
	return !seen
}

func (c *Closure) markVisited(source, node types.Term) {
	set, ok := c.visited[source]
	if !ok {
		set = make(map[types.Term]struct{})
		c.visited[source] = set
	}
	set[node] = struct{}{}
}

func (c *Closure) isSolution(node types.Term) bool {
	return c.goal == nil || node == *c.goal
}

// NextStage implements Iterator: it re-roots the search at the bound
// value of a variable subject/object, if any, and resets the stack,
// per-depth bindings, and visited memory.
func (c *Closure) NextStage(ctx context.Context, binding types.Mapping) error {
	c.bindings = make([]types.Mapping, c.maxDepth+1)
	if c.subject.IsVariable() {
		if v, ok := binding[c.subject]; ok {
			c.source = &v
		}
	}
	if c.object.IsVariable() {
		if v, ok := binding[c.object]; ok {
			c.goal = &v
		}
	}
	src := unboundSource
	if c.source != nil {
		src = *c.source
	}
	first, err := c.factory.New(ctx, src)
	if err != nil {
		return err
	}
	c.stack = []Frame{first.Save()}
	c.visited = make(map[types.Term]map[types.Term]struct{})
	return nil
}

// Save implements Iterator.
func (c *Closure) Save() Frame {
	visited := make([]VisitedPair, 0, len(c.visited))
	for src, set := range c.visited {
		for node := range set {
			visited = append(visited, VisitedPair{Source: src, Node: node})
		}
	}
	f := &ClosureFrame{
		ID: c.id, Subject: c.subject, Object: c.object,
		Stack: append([]Frame(nil), c.stack...), Bindings: append([]types.Mapping(nil), c.bindings...),
		MinDepth: c.minDepth, MaxDepth: c.maxDepth, Complete: c.complete, Visited: visited,
		PathSpec: c.pathSpec,
	}
	if c.source != nil {
		f.HasSource, f.Source = true, *c.source
	}
	if c.goal != nil {
		f.HasGoal, f.Goal = true, *c.goal
	}
	return f
}

// SerializedName implements Iterator.
func (c *Closure) SerializedName() string { return ClosureTag }

// Complete reports whether the search exhausted every path of
// interest rather than truncating at MaxDepth — the "completeness
// flag" of spec.md §4.2 that lets a client detect partial results.
func (c *Closure) Complete() bool { return c.complete }

// LastVisited exposes the node, depth, and solution status most
// recently discovered by Next, for Piggyback to fold into a control
// tuple. ok is false if Next has not yet produced a node this call (or
// has not been called).
func (c *Closure) LastVisited() (node types.Term, depth int, final bool, ok bool) {
	return c.lastNode, c.lastDepth, c.lastFinal, c.lastValid
}

// MaxDepth returns the configured depth bound, used by Piggyback to
// tag a control tuple's max_depth field.
func (c *Closure) MaxDepth() int { return c.maxDepth }
