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

// Package wiring assembles C1–C8 into the single Engine a transport
// handler calls: given a wiresurface.Request it resumes or compiles a
// pipeline, runs one scheduler quantum, commits or aborts the graph's
// transaction, and hands back a wiresurface.Response.
//
// SPARQL-text parsing is explicitly out of scope (spec.md §1): the
// engine's real compile entry, plan.Compile, takes an already-parsed
// algebra tree. Engine bridges that gap with two pluggable hooks,
// QueryParser and UpdateParser, so the text-to-algebra step stays a
// named, swappable collaborator rather than something this package
// has an opinion about.
package wiring

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sageql/sageql/internal/codec"
	"github.com/sageql/sageql/internal/config"
	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/expr"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/path"
	"github.com/sageql/sageql/internal/plan"
	"github.com/sageql/sageql/internal/sched"
	"github.com/sageql/sageql/internal/session"
	"github.com/sageql/sageql/internal/types"
	"github.com/sageql/sageql/internal/wiresurface"
)

// QueryParser turns SPARQL query text plus the wire-supplied default
// graph into the already-parsed algebra tree plan.Compile consumes.
// Non-SELECT/CONSTRUCT statements have no place in this hook.
type QueryParser func(query string, defaultGraph types.Term) (plan.Node, error)

// UpdateParser turns SPARQL update text into a fully assembled,
// ready-to-pull pipeline (spec.md §4.7's QuadMutation / SerializableUpdate
// / UpdateSequenceOperator trees). Unlike QueryParser it returns a
// live iterator directly rather than a plan.Node: update operators are
// constructed straight from their templates, not compiled through
// internal/plan's algebra.
type UpdateParser func(ctx context.Context, d *path.Deps, query string, defaultGraph types.Term) (iter.Iterator, error)

// Engine ties the C1–C8 components together for one deployment. One
// Engine serves every request; its fields are read-only after
// construction except for the Store/Manager's own internal
// concurrency-safe state.
type Engine struct {
	Adapter     types.StorageAdapter
	Graphs      *config.Registry
	Expressions *expr.Registry
	Sessions    *session.Manager
	Buffer      func() *iter.ControlTuplesBuffer
	ParseQuery  QueryParser
	ParseUpdate UpdateParser
}

// NewEngine constructs an Engine. bufferCap bounds each request's
// control-tuples buffer (spec.md §4.6, "too_many_paths").
func NewEngine(
	adapter types.StorageAdapter,
	graphs *config.Registry,
	expressions *expr.Registry,
	sessions *session.Manager,
	bufferCap int,
	parseQuery QueryParser,
	parseUpdate UpdateParser,
) *Engine {
	return &Engine{
		Adapter:     adapter,
		Graphs:      graphs,
		Expressions: expressions,
		Sessions:    sessions,
		Buffer:      func() *iter.ControlTuplesBuffer { return iter.NewControlTuplesBuffer(bufferCap) },
		ParseQuery:  parseQuery,
		ParseUpdate: parseUpdate,
	}
}

// graphConfig resolves name's configuration, falling back to
// spec-mandated defaults for a graph the deployment never registered
// (spec.md §4.2, "unknown named graphs scan as empty" — the same
// leniency extends to configuration).
func (e *Engine) graphConfig(name types.Term) *config.Graph {
	if g, ok := e.Graphs.Graph(string(name)); ok {
		return g
	}
	return config.Default(string(name))
}

func (e *Engine) deps(graph *config.Graph) (*path.Deps, *codec.Deps) {
	limits := e.Graphs
	pd := path.NewDeps(e.Adapter, e.Expressions, types.Term(graph.Name), limits)
	buf := e.Buffer()
	cd := &codec.Deps{Path: pd, Buffer: buf, ReducedCapacity: graph.MaxResults}
	return pd, cd
}

// Query runs one quantum of req: resuming a frozen pipeline when
// req.Next is set, otherwise compiling req.Query fresh against
// req.DefaultGraphURI.
func (e *Engine) Query(ctx context.Context, req wiresurface.Request) (wiresurface.Response, error) {
	graphName := types.Term(req.DefaultGraphURI)
	g := e.graphConfig(graphName)
	pd, cd := e.deps(g)

	var root iter.Iterator
	var err error
	if req.Next != "" {
		root, err = e.Sessions.Resume(ctx, cd, g.Stateless, req.Next)
	} else {
		var node plan.Node
		node, err = e.ParseQuery(req.Query, graphName)
		if err == nil {
			root, err = plan.Compile(ctx, pd, node)
		}
	}
	if err != nil {
		if u, ok := engineerr.IsUnsupportedSPARQL(err); ok {
			log.WithField("feature", u.Feature).Warn("unsupported SPARQL feature")
		}
		return wiresurface.Response{}, err
	}

	return e.run(ctx, g, root, graphName, req.Next)
}

// Update runs one quantum of an update request, using the same
// resume/compile split as Query but routed through ParseUpdate, since
// update pipelines are assembled directly rather than compiled from a
// plan.Node (spec.md §4.7).
func (e *Engine) Update(ctx context.Context, req wiresurface.Request) (wiresurface.Response, error) {
	graphName := types.Term(req.DefaultGraphURI)
	g := e.graphConfig(graphName)
	pd, cd := e.deps(g)

	var root iter.Iterator
	var err error
	if req.Next != "" {
		root, err = e.Sessions.Resume(ctx, cd, g.Stateless, req.Next)
	} else {
		root, err = e.ParseUpdate(ctx, pd, req.Query, graphName)
	}
	if err != nil {
		return wiresurface.Response{}, err
	}

	return e.run(ctx, g, root, graphName, req.Next)
}

// run pulls one quantum from root, finalizes the graph's transaction,
// and assembles the wire Response — shared by Query and Update since
// both funnel into the same scheduler/session contract once a live
// pipeline exists.
func (e *Engine) run(ctx context.Context, g *config.Graph, root iter.Iterator, graphName types.Term, priorPlanID string) (wiresurface.Response, error) {
	result := sched.Run(ctx, root, sched.Quantum{Budget: g.Quota(), Results: g.MaxResults, Graph: graphName})

	if err := e.Sessions.Finalize(ctx, e.Adapter, graphName, result); err != nil {
		log.WithError(err).WithField("graph", graphName).Error("finalizing graph transaction")
		return wiresurface.Response{}, err
	}

	resp := wiresurface.Response{
		Bindings: wiresurface.FromMappings(result.Mappings),
		HasNext:  !result.Done && result.Abort == "",
	}
	if !resp.HasNext {
		if err := e.Sessions.Finish(ctx, g.Stateless, priorPlanID); err != nil {
			log.WithError(err).Warn("releasing finished plan")
		}
		return resp, nil
	}

	next, err := e.Sessions.Freeze(ctx, g.Stateless, priorPlanID, result.Frame)
	if err != nil {
		return wiresurface.Response{}, err
	}
	resp.Next = next
	return resp, nil
}
