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

// BindTag identifies the Bind operator's Frame variant.
const BindTag = "bind"

// BindFrame is Bind's continuation piece. Child is nil for a constant
// BIND (no WHERE clause); Delivered records whether that single
// mapping has already been emitted, per spec.md §4.2.
type BindFrame struct {
	Var        types.Term
	Expression string
	Delivered  bool
	TickCount  int
	Child      Frame // nil for a constant BIND
}

// Tag implements Frame.
func (BindFrame) Tag() string { return BindTag }

// Bind wraps a child (or no child, for a constant BIND) and adds
// ?var -> value to each input mapping by evaluating an expression
// under it. With no child it emits exactly one mapping, once, then
// reports done.
type Bind struct {
	child      Iterator // nil for a constant BIND
	varName    types.Term
	expression string
	ast        expr.Node
	registry   *expr.Registry
	delivered  bool
	ticker     Ticker
}

var _ Iterator = (*Bind)(nil)

// NewBind constructs a Bind. child may be nil for a constant BIND over
// an empty BGP.
func NewBind(child Iterator, varName types.Term, expression string, registry *expr.Registry) (*Bind, error) {
	ast, err := expr.Parse(expression)
	if err != nil {
		return nil, errors.Wrap(err, "compiling bind expression")
	}
	return &Bind{child: child, varName: varName, expression: expression, ast: ast, registry: registry}, nil
}

// LoadBind reconstructs a Bind from a frame and its (possibly nil)
// rehydrated child.
func LoadBind(f *BindFrame, child Iterator, registry *expr.Registry) (*Bind, error) {
	ast, err := expr.Parse(f.Expression)
	if err != nil {
		return nil, errors.Wrap(err, "re-compiling bind expression on resume")
	}
	b := &Bind{
		child: child, varName: f.Var, expression: f.Expression,
		ast: ast, registry: registry, delivered: f.Delivered,
	}
	b.ticker.SetCount(f.TickCount)
	return b, nil
}

// HasNext implements Iterator.
func (b *Bind) HasNext(ctx context.Context) bool {
	if b.child == nil {
		return !b.delivered
	}
	return b.child.HasNext(ctx)
}

// Next implements Iterator.
func (b *Bind) Next(ctx context.Context) (types.Mapping, error) {
	if b.child == nil {
		if b.delivered {
			return nil, nil
		}
		b.delivered = true
		val, err := b.ast.Eval(b.registry, types.Mapping{})
		if err != nil {
			log.WithError(engineerr.NewParseError(b.expression, err)).Warn("bind expression evaluation failed, dropping row")
			return nil, nil
		}
		return types.Mapping{b.varName: val}, nil
	}

	if !b.child.HasNext(ctx) {
		return nil, nil
	}
	mu, err := b.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	if mu == nil {
		b.ticker.Tick()
		return nil, nil
	}
	val, err := b.ast.Eval(b.registry, mu)
	if err != nil {
		// Per spec.md §7, Bind swallows per-row evaluation errors and
		// continues rather than propagating them.
		log.WithError(engineerr.NewParseError(b.expression, err)).Warn("bind expression evaluation failed, dropping row")
		return nil, nil
	}
	return mu.Merge(types.Mapping{b.varName: val}), nil
}

// NextStage implements Iterator.
func (b *Bind) NextStage(ctx context.Context, binding types.Mapping) error {
	b.delivered = false
	b.ticker = Ticker{}
	if b.child == nil {
		return nil
	}
	return b.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (b *Bind) Save() Frame {
	f := &BindFrame{
		Var:        b.varName,
		Expression: b.expression,
		Delivered:  b.delivered,
		TickCount:  b.ticker.Count(),
	}
	if b.child != nil {
		f.Child = b.child.Save()
	}
	return f
}

// SerializedName implements Iterator.
func (b *Bind) SerializedName() string { return BindTag }
