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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/expr"
	"github.com/sageql/sageql/internal/types"
)

// FilterTag identifies the Filter operator's Frame variant.
const FilterTag = "filter"

// FilterFrame is Filter's continuation piece: the expression text (so
// it can be re-parsed on load), the last un-consumed input mapping,
// the tick count, and the child's frame.
type FilterFrame struct {
	Expression string
	Mu         types.Mapping
	TickCount  int
	Child      Frame
}

// Tag implements Frame.
func (FilterFrame) Tag() string { return FilterTag }

// Filter wraps a child, parsing its SPARQL expression once at
// construction, and yields only mappings under which the expression
// is truthy. It caches the most recent un-consumed input mapping in
// mu so that after a freeze/restore it re-tests rather than re-pulling
// (spec.md §4.2).
type Filter struct {
	child      Iterator
	expression string
	ast        expr.Node
	registry   *expr.Registry
	mu         types.Mapping
	ticker     Ticker
}

var _ Iterator = (*Filter)(nil)

// NewFilter parses expression once and wraps child with it.
func NewFilter(child Iterator, expression string, registry *expr.Registry) (*Filter, error) {
	ast, err := expr.Parse(expression)
	if err != nil {
		return nil, errors.Wrap(err, "compiling filter expression")
	}
	return &Filter{child: child, expression: expression, ast: ast, registry: registry}, nil
}

// LoadFilter reconstructs a Filter from a frame and its rehydrated
// child, re-parsing the expression text.
func LoadFilter(f *FilterFrame, child Iterator, registry *expr.Registry) (*Filter, error) {
	ast, err := expr.Parse(f.Expression)
	if err != nil {
		return nil, errors.Wrap(err, "re-compiling filter expression on resume")
	}
	filt := &Filter{child: child, expression: f.Expression, ast: ast, registry: registry, mu: f.Mu}
	filt.ticker.SetCount(f.TickCount)
	return filt, nil
}

// HasNext implements Iterator.
func (f *Filter) HasNext(ctx context.Context) bool {
	if f.mu != nil {
		return true
	}
	return f.child.HasNext(ctx)
}

// Next implements Iterator. It loops internally over rejected input
// tuples, re-testing each against the parsed expression, and yields
// control back to the scheduler every yieldEvery consecutive
// rejections (spec.md §5) rather than on every single one.
func (f *Filter) Next(ctx context.Context) (types.Mapping, error) {
	for {
		if f.mu == nil {
			if !f.child.HasNext(ctx) {
				return nil, nil
			}
			mu, err := f.child.Next(ctx)
			if err != nil {
				return nil, err
			}
			if mu == nil {
				return nil, nil
			}
			f.mu = mu
		}

		mu := f.mu
		f.mu = nil

		val, err := f.ast.Eval(f.registry, mu)
		if err != nil {
			// A ParseError during evaluation is not fatal: the row is
			// dropped and treated as evaluating to false (spec.md §7).
			log.WithError(engineerr.NewParseError(f.expression, err)).Warn("filter expression evaluation failed, dropping row")
		} else if expr.Truthy(val) {
			return mu, nil
		}

		if f.ticker.Tick() {
			return nil, nil
		}
	}
}

// NextStage implements Iterator.
func (f *Filter) NextStage(ctx context.Context, binding types.Mapping) error {
	f.mu = nil
	f.ticker = Ticker{}
	return f.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (f *Filter) Save() Frame {
	return &FilterFrame{
		Expression: f.expression,
		Mu:         f.mu,
		TickCount:  f.ticker.Count(),
		Child:      f.child.Save(),
	}
}

// SerializedName implements Iterator.
func (f *Filter) SerializedName() string { return FilterTag }
