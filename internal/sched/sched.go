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

// Package sched implements the C6 preemptive scheduler (spec.md §4.6):
// a single-threaded loop that pulls mappings from a pipeline root
// until it drains, a result cap is hit, or a CPU quantum elapses,
// freezing the root into a continuation on the latter two.
package sched

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/metrics"
	"github.com/sageql/sageql/internal/types"
)

// Quantum bounds a single Run call's wall-clock budget. Results caps
// the number of mappings collected before yielding, regardless of
// elapsed time; zero disables that cap. Budget has no such escape
// hatch: a zero Budget is an already-elapsed quantum (spec.md §8,
// "Quantum = 0"), so Run suspends before pulling anything at all.
// Graph labels the metrics Run emits; it plays no role in the loop
// itself.
type Quantum struct {
	Budget  time.Duration
	Results int
	Graph   types.Term
}

// Result is what Run reports back to the session manager: the
// mappings collected this quantum, whether the pipeline is fully
// drained, and — if it was cut short by an error — the abort reason
// text (spec.md §4.6, "abort_reason").
type Result struct {
	Mappings []types.Mapping
	Done     bool
	Abort    string
	Frame    iter.Frame // non-nil only when !Done && Abort == ""
}

// Run drives root until it has no more mappings, the quantum's result
// cap is reached, its time budget elapses, or a pull fails. This is
// spec.md §4.6's exact loop: check the two break conditions first (so
// a zero Budget suspends before ever touching root), call has_next;
// if false, report done; otherwise pull one mapping and append it if
// non-nil, then loop back to the break check — which also covers
// suspensions that yielded no mapping, since those still cost
// wall-clock time.
func Run(ctx context.Context, root iter.Iterator, q Quantum) Result {
	start := time.Now()
	var out []types.Mapping

	finish := func(r Result) Result {
		metrics.QuantumDurations.WithLabelValues(string(q.Graph)).Observe(time.Since(start).Seconds())
		metrics.QuantumResults.WithLabelValues(string(q.Graph)).Add(float64(len(r.Mappings)))
		if r.Abort != "" {
			metrics.QuantumAborts.WithLabelValues(abortReasonPrefix(r.Abort)).Inc()
		}
		return r
	}

	for {
		if q.Results > 0 && len(out) >= q.Results {
			return finish(Result{Mappings: out, Done: false, Frame: root.Save()})
		}
		if time.Since(start) >= q.Budget {
			return finish(Result{Mappings: out, Done: false, Frame: root.Save()})
		}

		if !root.HasNext(ctx) {
			return finish(Result{Mappings: out, Done: true})
		}

		mu, err := root.Next(ctx)
		if err != nil {
			if reason, ok := engineerr.AbortReasonOf(err); ok {
				log.WithError(err).WithField("abort_reason", reason).Warn("query pipeline aborted")
				return finish(Result{Mappings: out, Done: false, Abort: reason})
			}
			log.WithError(err).Error("query pipeline failed without a recognized abort reason")
			return finish(Result{Mappings: out, Done: false, Abort: "internal:" + err.Error()})
		}
		if mu != nil {
			out = append(out, mu)
		}
	}
}

// abortReasonPrefix keeps the abort-reason metric label's cardinality
// bounded: "storage:connection refused" and "storage:deadlock
// detected" both count under "storage", never one series per message.
func abortReasonPrefix(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}
