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

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/iter"
)

// LoadStep rebuilds a live C2 operator from a frame previously saved
// by Compile's output, or by a one-hop iterator nested inside a
// Closure's stack. It only needs to handle the restricted set of
// operator kinds Compile ever produces — Scan, Join, Union, Filter,
// Reflexive, and (for nested Mul) Closure itself — which is why it
// lives here rather than needing the full operator set internal/codec
// (C5) dispatches over.
func (d *Deps) LoadStep(ctx context.Context, frame iter.Frame) (iter.Iterator, error) {
	switch f := frame.(type) {
	case *iter.ScanFrame:
		return iter.LoadScan(ctx, d.Adapter, f)

	case *iter.JoinFrame:
		left, err := d.LoadStep(ctx, f.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.LoadStep(ctx, f.Right)
		if err != nil {
			return nil, err
		}
		return iter.LoadJoin(f, left, right), nil

	case *iter.UnionFrame:
		left, err := d.LoadStep(ctx, f.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.LoadStep(ctx, f.Right)
		if err != nil {
			return nil, err
		}
		return iter.LoadUnion(f, left, right), nil

	case *iter.FilterFrame:
		child, err := d.LoadStep(ctx, f.Child)
		if err != nil {
			return nil, err
		}
		return iter.LoadFilter(f, child, d.Registry)

	case *iter.ReflexiveFrame:
		var child iter.Iterator
		if f.Child != nil {
			var err error
			child, err = d.LoadStep(ctx, f.Child)
			if err != nil {
				return nil, err
			}
		}
		return iter.LoadReflexive(f, child), nil

	case *iter.ClosureFrame:
		inner, err := DecodeExpr(f.PathSpec)
		if err != nil {
			return nil, err
		}
		return iter.LoadClosure(f, newClosureFactory(d, inner)), nil

	default:
		return nil, errors.Errorf("path: cannot load frame with tag %q", frame.Tag())
	}
}
