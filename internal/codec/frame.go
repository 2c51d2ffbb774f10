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

package codec

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
)

// Wire shadow structs mirror each operator's Frame but replace nested
// Frame-typed fields with Envelopes, so CBOR never has to marshal the
// Frame interface directly (spec.md §4.5: "each variant has a unique
// tag ... nested frames are themselves tagged").

type wireJoin struct {
	Left, Right Envelope
	Outer       types.Mapping
	OuterValid  bool
}

type wireUnion struct {
	Left, Right Envelope
	OnRight     bool
}

type wireFilter struct {
	Expression string
	Mu         types.Mapping
	TickCount  int
	Child      Envelope
}

type wireReflexive struct {
	Subject        types.Term
	Object         types.Term
	HasChild       bool
	Child          Envelope
	CurrentBinding types.Mapping
	Mu             types.Mapping
	Done           bool
	Visited        []types.Term
}

type wireClosure struct {
	ID        int
	Subject   types.Term
	Object    types.Term
	Stack     []Envelope
	Bindings  []types.Mapping
	MinDepth  int
	MaxDepth  int
	Complete  bool
	HasSource bool
	Source    types.Term
	HasGoal   bool
	Goal      types.Term
	Visited   []iter.VisitedPair
	PathSpec  []byte
}

type wireProjection struct {
	Vars  []types.Term
	Child Envelope
}

type wireReduced struct {
	Seen  map[string]struct{}
	Child Envelope
}

type wireBind struct {
	Var        types.Term
	Expression string
	Delivered  bool
	TickCount  int
	HasChild   bool
	Child      Envelope
}

type wireConstruct struct {
	Template   types.Triple
	Accumulate []types.Triple
	Done       bool
	Child      Envelope
}

type wirePiggyback struct {
	PatternID      string
	Forward        bool
	CurrentBinding types.Mapping
	Mu             types.Mapping
	Child          Envelope
}

// EncodeFrame renders one operator Frame, and recursively every frame
// it nests, into an Envelope.
func EncodeFrame(f iter.Frame) (Envelope, error) {
	switch fr := f.(type) {
	case *iter.ScanFrame:
		return envelope(iter.ScanTag, fr)

	case *iter.JoinFrame:
		left, err := EncodeFrame(fr.Left)
		if err != nil {
			return Envelope{}, err
		}
		right, err := EncodeFrame(fr.Right)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.JoinTag, &wireJoin{Left: left, Right: right, Outer: fr.Outer, OuterValid: fr.OuterValid})

	case *iter.UnionFrame:
		left, err := EncodeFrame(fr.Left)
		if err != nil {
			return Envelope{}, err
		}
		right, err := EncodeFrame(fr.Right)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.UnionTag, &wireUnion{Left: left, Right: right, OnRight: fr.OnRight})

	case *iter.FilterFrame:
		child, err := EncodeFrame(fr.Child)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.FilterTag, &wireFilter{Expression: fr.Expression, Mu: fr.Mu, TickCount: fr.TickCount, Child: child})

	case *iter.ReflexiveFrame:
		w := &wireReflexive{
			Subject: fr.Subject, Object: fr.Object,
			CurrentBinding: fr.CurrentBinding, Mu: fr.Mu, Done: fr.Done, Visited: fr.Visited,
		}
		if fr.Child != nil {
			child, err := EncodeFrame(fr.Child)
			if err != nil {
				return Envelope{}, err
			}
			w.HasChild, w.Child = true, child
		}
		return envelope(iter.ReflexiveTag, w)

	case *iter.ClosureFrame:
		stack := make([]Envelope, len(fr.Stack))
		for i, s := range fr.Stack {
			env, err := EncodeFrame(s)
			if err != nil {
				return Envelope{}, err
			}
			stack[i] = env
		}
		w := &wireClosure{
			ID: fr.ID, Subject: fr.Subject, Object: fr.Object,
			Stack: stack, Bindings: fr.Bindings,
			MinDepth: fr.MinDepth, MaxDepth: fr.MaxDepth, Complete: fr.Complete,
			HasSource: fr.HasSource, Source: fr.Source,
			HasGoal: fr.HasGoal, Goal: fr.Goal,
			Visited: fr.Visited, PathSpec: fr.PathSpec,
		}
		return envelope(iter.ClosureTag, w)

	case *iter.ProjectionFrame:
		child, err := EncodeFrame(fr.Child)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.ProjectionTag, &wireProjection{Vars: fr.Vars, Child: child})

	case *iter.ReducedFrame:
		child, err := EncodeFrame(fr.Child)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.ReducedTag, &wireReduced{Seen: fr.Seen, Child: child})

	case *iter.BindFrame:
		w := &wireBind{Var: fr.Var, Expression: fr.Expression, Delivered: fr.Delivered, TickCount: fr.TickCount}
		if fr.Child != nil {
			child, err := EncodeFrame(fr.Child)
			if err != nil {
				return Envelope{}, err
			}
			w.HasChild, w.Child = true, child
		}
		return envelope(iter.BindTag, w)

	case *iter.ConstructFrame:
		child, err := EncodeFrame(fr.Child)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.ConstructTag, &wireConstruct{Template: fr.Template, Accumulate: fr.Accumulate, Done: fr.Done, Child: child})

	case *iter.PiggybackFrame:
		child, err := EncodeFrame(fr.Child)
		if err != nil {
			return Envelope{}, err
		}
		return envelope(iter.PiggybackTag, &wirePiggyback{
			PatternID: fr.PatternID, Forward: fr.Forward,
			CurrentBinding: fr.CurrentBinding, Mu: fr.Mu, Child: child,
		})

	case *iter.EmptyFrame:
		return envelope(iter.EmptyTag, fr)

	default:
		if env, handled, err := encodeUpdateFrame(f); handled {
			return env, err
		}
		return Envelope{}, errors.Errorf("codec: unknown frame type %T", f)
	}
}

func envelope(tag string, v interface{}) (Envelope, error) {
	body, err := marshalBody(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Tag: tag, Body: body}, nil
}

// DecodeFrameRaw reconstructs a raw, un-rehydrated iter.Frame from an
// Envelope. It only covers the operator subset internal/path.Deps's
// LoadStep can itself produce — Scan, Join, Union, Filter, Reflexive,
// Closure — since those are the only tags that ever appear nested
// inside a Closure's frozen Stack, and the stack must stay undecoded
// until Closure.Next pops and loads each entry lazily.
func DecodeFrameRaw(env Envelope) (iter.Frame, error) {
	switch env.Tag {
	case iter.ScanTag:
		var f iter.ScanFrame
		if err := unmarshalBody(env.Body, &f); err != nil {
			return nil, err
		}
		return &f, nil

	case iter.JoinTag:
		var w wireJoin
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		left, err := DecodeFrameRaw(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeFrameRaw(w.Right)
		if err != nil {
			return nil, err
		}
		return &iter.JoinFrame{Left: left, Right: right, Outer: w.Outer, OuterValid: w.OuterValid}, nil

	case iter.UnionTag:
		var w wireUnion
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		left, err := DecodeFrameRaw(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeFrameRaw(w.Right)
		if err != nil {
			return nil, err
		}
		return &iter.UnionFrame{Left: left, Right: right, OnRight: w.OnRight}, nil

	case iter.FilterTag:
		var w wireFilter
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		child, err := DecodeFrameRaw(w.Child)
		if err != nil {
			return nil, err
		}
		return &iter.FilterFrame{Expression: w.Expression, Mu: w.Mu, TickCount: w.TickCount, Child: child}, nil

	case iter.ReflexiveTag:
		var w wireReflexive
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		f := &iter.ReflexiveFrame{
			Subject: w.Subject, Object: w.Object,
			CurrentBinding: w.CurrentBinding, Mu: w.Mu, Done: w.Done, Visited: w.Visited,
		}
		if w.HasChild {
			child, err := DecodeFrameRaw(w.Child)
			if err != nil {
				return nil, err
			}
			f.Child = child
		}
		return f, nil

	case iter.ClosureTag:
		var w wireClosure
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		stack := make([]iter.Frame, len(w.Stack))
		for i, e := range w.Stack {
			fr, err := DecodeFrameRaw(e)
			if err != nil {
				return nil, err
			}
			stack[i] = fr
		}
		return &iter.ClosureFrame{
			ID: w.ID, Subject: w.Subject, Object: w.Object,
			Stack: stack, Bindings: w.Bindings,
			MinDepth: w.MinDepth, MaxDepth: w.MaxDepth, Complete: w.Complete,
			HasSource: w.HasSource, Source: w.Source,
			HasGoal: w.HasGoal, Goal: w.Goal,
			Visited: w.Visited, PathSpec: w.PathSpec,
		}, nil

	default:
		return nil, errors.Errorf("codec: tag %q is not a restricted-set path frame", env.Tag)
	}
}

// DecodeFrame is the top-level continuation decoder: it reconstructs a
// live, ready-to-pull Iterator from an Envelope previously produced by
// EncodeFrame, given the backend/registry/buffer handles deps supplies
// (spec.md §4.5, "on decode each variant rebuilds via its constructor
// plus backend handle").
func DecodeFrame(ctx context.Context, deps *Deps, env Envelope) (iter.Iterator, error) {
	switch env.Tag {
	case iter.ScanTag, iter.JoinTag, iter.UnionTag, iter.FilterTag, iter.ReflexiveTag, iter.ClosureTag:
		frame, err := DecodeFrameRaw(env)
		if err != nil {
			return nil, err
		}
		return deps.Path.LoadStep(ctx, frame)

	case iter.ProjectionTag:
		var w wireProjection
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		child, err := DecodeFrame(ctx, deps, w.Child)
		if err != nil {
			return nil, err
		}
		return iter.LoadProjection(&iter.ProjectionFrame{Vars: w.Vars}, child), nil

	case iter.ReducedTag:
		var w wireReduced
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		child, err := DecodeFrame(ctx, deps, w.Child)
		if err != nil {
			return nil, err
		}
		return iter.LoadReduced(&iter.ReducedFrame{Seen: w.Seen}, child, deps.ReducedCapacity), nil

	case iter.BindTag:
		var w wireBind
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		var child iter.Iterator
		if w.HasChild {
			var err error
			child, err = DecodeFrame(ctx, deps, w.Child)
			if err != nil {
				return nil, err
			}
		}
		return iter.LoadBind(&iter.BindFrame{
			Var: w.Var, Expression: w.Expression, Delivered: w.Delivered, TickCount: w.TickCount,
		}, child, deps.Path.Registry)

	case iter.ConstructTag:
		var w wireConstruct
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		child, err := DecodeFrame(ctx, deps, w.Child)
		if err != nil {
			return nil, err
		}
		return iter.LoadConstruct(&iter.ConstructFrame{Template: w.Template, Accumulate: w.Accumulate, Done: w.Done}, child), nil

	case iter.PiggybackTag:
		var w wirePiggyback
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, err
		}
		child, err := DecodeFrame(ctx, deps, w.Child)
		if err != nil {
			return nil, err
		}
		ptc, ok := child.(iter.PTCIterator)
		if !ok {
			return nil, errors.Errorf("codec: piggyback child %T is not a PTCIterator", child)
		}
		return iter.LoadPiggyback(&iter.PiggybackFrame{
			PatternID: w.PatternID, Forward: w.Forward, CurrentBinding: w.CurrentBinding, Mu: w.Mu,
		}, ptc, deps.Buffer), nil

	case iter.EmptyTag:
		var f iter.EmptyFrame
		if err := unmarshalBody(env.Body, &f); err != nil {
			return nil, err
		}
		return iter.LoadEmpty(&f), nil

	default:
		if it, handled, err := decodeUpdateFrame(ctx, deps, env); handled {
			return it, err
		}
		return nil, errors.Errorf("codec: unknown frame tag %q", env.Tag)
	}
}
