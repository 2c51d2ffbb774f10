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

package path

import (
	"context"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// closureFactory implements iter.PathFactory for a single compiled
// Mul node: inner is the one-hop subexpression a Closure re-stages at
// every depth, already Normalize()d and with its direction baked in
// (compileMul inverts it up front when walking backward), so New and
// Load never need to re-derive which way to walk.
type closureFactory struct {
	d     *Deps
	inner Expr
}

var _ iter.PathFactory = (*closureFactory)(nil)

func newClosureFactory(d *Deps, inner Expr) *closureFactory {
	return &closureFactory{d: d, inner: inner}
}

// New builds a fresh one-hop iterator rooted at source ("" meaning
// the hop's subject is itself still unbound), by compiling the
// factory's inner expression between the fixed hopSubject/hopObject endpoints
// and, if source is fixed, staging it with that binding — mirroring
// how the grounding source's loader parameterizes each depth's scan.
func (f *closureFactory) New(ctx context.Context, source types.Term) (iter.Iterator, error) {
	it, _, err := compile(ctx, f.d, hopSubject, f.inner, hopObject, nil)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := it.NextStage(ctx, types.Mapping{hopSubject: source}); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Load rebuilds a frozen one-hop iterator from the frame Closure had
// stashed on its stack.
func (f *closureFactory) Load(ctx context.Context, frame iter.Frame) (iter.Iterator, error) {
	return f.d.LoadStep(ctx, frame)
}

// hopSubject and hopObject are the fixed variable names a Closure's
// one-hop iterator binds at every depth; Closure.Next reads the
// discovered node back out via hopObject ("?node" in its own terms —
// see internal/iter/closure.go) and the root source via hopSubject
// ("?source").
const (
	hopSubject = types.Term("?source")
	hopObject  = types.Term("?node")
)
