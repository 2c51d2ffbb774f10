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

// Package config contains the per-graph configuration recognized by
// the engine (spec.md §6's configuration table), bound to command-line
// flags the way the teacher's internal/source/server.Config does.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Consistency is the update isolation level recognized for a graph.
type Consistency string

// The three isolation levels named in spec.md §6.
const (
	ConsistencySerializable   Consistency = "serializable"
	ConsistencyAtomicPerRow   Consistency = "atomic_per_row"
	ConsistencyAtomicPerQuant Consistency = "atomic_per_quantum"
)

const (
	defaultMaxDepth    = 10
	defaultMaxResults  = 10_000
	defaultQuotaMillis = 750
)

// Graph contains the user-visible, per-graph configuration. Default and
// Bind fill in spec.md §9(d)'s default max_depth of 10; a zero Graph
// has MaxDepth 0.
type Graph struct {
	Name string

	QuotaMillis int
	MaxResults  int
	MaxDepth    int
	Consistency Consistency
	Stateless   bool
}

// Quota returns the configured quantum as a time.Duration.
func (g *Graph) Quota() time.Duration {
	return time.Duration(g.QuotaMillis) * time.Millisecond
}

// Bind registers flags for this graph's configuration, prefixed so
// that multiple graphs can share one flag set.
func (g *Graph) Bind(flags *pflag.FlagSet) {
	flags.IntVar(
		&g.QuotaMillis,
		"quota",
		defaultQuotaMillis,
		"per-request CPU quantum, in milliseconds")
	flags.IntVar(
		&g.MaxResults,
		"maxResults",
		defaultMaxResults,
		"per-request result cap")
	flags.IntVar(
		&g.MaxDepth,
		"maxDepth",
		defaultMaxDepth,
		"maximum property-path closure depth")
	flags.StringVar(
		(*string)(&g.Consistency),
		"consistency",
		string(ConsistencySerializable),
		"update isolation level: serializable, atomic_per_row, or atomic_per_quantum")
	flags.BoolVar(
		&g.Stateless,
		"stateless",
		true,
		"if true, continuations are returned to clients as opaque bytes rather than plan IDs")
}

// Preflight validates the configuration after flags have been parsed.
func (g *Graph) Preflight() error {
	if g.QuotaMillis < 0 {
		return errors.New("quota must be non-negative")
	}
	if g.MaxResults <= 0 {
		return errors.New("maxResults must be positive")
	}
	if g.MaxDepth < 0 {
		return errors.New("maxDepth must be non-negative")
	}
	switch g.Consistency {
	case ConsistencySerializable, ConsistencyAtomicPerRow, ConsistencyAtomicPerQuant:
	default:
		return errors.Errorf("unknown consistency level %q", g.Consistency)
	}
	return nil
}

// Default returns a Graph populated with spec-mandated defaults.
func Default(name string) *Graph {
	return &Graph{
		Name:        name,
		QuotaMillis: defaultQuotaMillis,
		MaxResults:  defaultMaxResults,
		MaxDepth:    defaultMaxDepth,
		Consistency: ConsistencySerializable,
		Stateless:   true,
	}
}
