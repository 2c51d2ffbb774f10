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

// ConstructTag identifies the Construct operator's Frame variant.
const ConstructTag = "construct"

// ConstructFrame is Construct's continuation piece: the triple
// template, the triples accumulated so far, whether the child has
// been fully drained, and the child's frame.
type ConstructFrame struct {
	Template   types.Triple
	Accumulate []types.Triple
	Done       bool
	Child      Frame
}

// Tag implements Frame.
func (ConstructFrame) Tag() string { return ConstructTag }

// Construct instantiates a triple template for every mapping produced
// by its child, accumulating the results into an in-memory graph
// (spec.md §4.2). It is a side-effect iterator: Next always returns a
// nil mapping.
type Construct struct {
	child      Iterator
	template   types.Triple
	accumulate []types.Triple
	done       bool
}

var _ Iterator = (*Construct)(nil)
var _ Sink = (*Construct)(nil)

// NewConstruct constructs a Construct over child with the given triple
// template.
func NewConstruct(child Iterator, template types.Triple) *Construct {
	return &Construct{child: child, template: template}
}

// LoadConstruct reconstructs a Construct from a frame and its
// rehydrated child.
func LoadConstruct(f *ConstructFrame, child Iterator) *Construct {
	acc := append([]types.Triple(nil), f.Accumulate...)
	return &Construct{child: child, template: f.Template, accumulate: acc, done: f.Done}
}

// HasNext implements Iterator.
func (c *Construct) HasNext(ctx context.Context) bool {
	if c.done {
		return false
	}
	if c.child.HasNext(ctx) {
		return true
	}
	c.done = true
	return false
}

// Next implements Iterator. It always returns a nil mapping; its
// effect is visible only through Graph().
func (c *Construct) Next(ctx context.Context) (types.Mapping, error) {
	if !c.HasNext(ctx) {
		return nil, nil
	}
	mu, err := c.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	if mu == nil {
		return nil, nil
	}
	if t, ok := instantiate(c.template, mu); ok {
		c.accumulate = append(c.accumulate, t)
	}
	return nil, nil
}

func instantiate(template types.Triple, mu types.Mapping) (types.Triple, bool) {
	s, ok1 := resolveTemplateTerm(template.Subject, mu)
	p, ok2 := resolveTemplateTerm(template.Predicate, mu)
	o, ok3 := resolveTemplateTerm(template.Object, mu)
	if !ok1 || !ok2 || !ok3 {
		return types.Triple{}, false
	}
	g := template.Graph
	if g.IsVariable() {
		if v, ok := mu[g]; ok {
			g = v
		}
	}
	return types.Triple{Subject: s, Predicate: p, Object: o, Graph: g}, true
}

func resolveTemplateTerm(t types.Term, mu types.Mapping) (types.Term, bool) {
	if !t.IsVariable() {
		return t, true
	}
	v, ok := mu[t]
	return v, ok
}

// NextStage implements Iterator.
func (c *Construct) NextStage(ctx context.Context, binding types.Mapping) error {
	c.done = false
	c.accumulate = nil
	return c.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (c *Construct) Save() Frame {
	return &ConstructFrame{
		Template:   c.template,
		Accumulate: append([]types.Triple(nil), c.accumulate...),
		Done:       c.done,
		Child:      c.child.Save(),
	}
}

// SerializedName implements Iterator.
func (c *Construct) SerializedName() string { return ConstructTag }

// Done implements Sink.
func (c *Construct) Done() bool { return c.done }

// Graph returns the triples accumulated so far. Readable at any time,
// including mid-quantum, though it is only complete once Done()
// reports true.
func (c *Construct) Graph() []types.Triple {
	return append([]types.Triple(nil), c.accumulate...)
}
