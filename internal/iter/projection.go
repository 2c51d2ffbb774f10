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

// ProjectionTag identifies the Projection operator's Frame variant.
const ProjectionTag = "projection"

// ProjectionFrame is Projection's continuation piece: the variable
// list and the child's frame.
type ProjectionFrame struct {
	Vars  []types.Term
	Child Frame
}

// Tag implements Frame.
func (ProjectionFrame) Tag() string { return ProjectionTag }

// Projection restricts a mapping's domain to a fixed variable list;
// unlisted variables are dropped.
type Projection struct {
	child Iterator
	vars  []types.Term
}

var _ Iterator = (*Projection)(nil)

// NewProjection constructs a Projection over child, keeping only vars.
func NewProjection(child Iterator, vars []types.Term) *Projection {
	return &Projection{child: child, vars: vars}
}

// LoadProjection reconstructs a Projection from a frame and its
// rehydrated child.
func LoadProjection(f *ProjectionFrame, child Iterator) *Projection {
	return &Projection{child: child, vars: f.Vars}
}

// HasNext implements Iterator.
func (p *Projection) HasNext(ctx context.Context) bool { return p.child.HasNext(ctx) }

// Next implements Iterator.
func (p *Projection) Next(ctx context.Context) (types.Mapping, error) {
	mu, err := p.child.Next(ctx)
	if err != nil || mu == nil {
		return nil, err
	}
	out := make(types.Mapping, len(p.vars))
	for _, v := range p.vars {
		if val, ok := mu[v]; ok {
			out[v] = val
		}
	}
	return out, nil
}

// NextStage implements Iterator.
func (p *Projection) NextStage(ctx context.Context, binding types.Mapping) error {
	return p.child.NextStage(ctx, binding)
}

// Save implements Iterator.
func (p *Projection) Save() Frame {
	return &ProjectionFrame{Vars: p.vars, Child: p.child.Save()}
}

// SerializedName implements Iterator.
func (p *Projection) SerializedName() string { return ProjectionTag }
