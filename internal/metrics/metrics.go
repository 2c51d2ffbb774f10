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

// Package metrics holds the bucket/label definitions and Prometheus
// collectors shared across the engine, mirroring the teacher's
// internal/util/metrics + internal/staging/stage/metrics.go pairing:
// common definitions live here, package-scoped collectors live next
// to the code that drives them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets are the shared histogram buckets for duration
// metrics; QuantumDurations is the one collector that uses them.
var LatencyBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30,
}

// GraphLabels is attached to any counter/histogram scoped to a single
// named graph.
var GraphLabels = []string{"graph"}

// OperatorLabels is attached to any counter/histogram scoped to a
// physical operator kind (the serialized_name tag).
var OperatorLabels = []string{"operator"}

// QuantumDurations records how long each scheduler quantum (C6) ran
// before draining, hitting its result cap, or running out of budget.
var QuantumDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sageql_quantum_duration_seconds",
	Help:    "the length of time a scheduler quantum ran before suspending or finishing",
	Buckets: LatencyBuckets,
}, GraphLabels)

// QuantumAborts counts quanta that ended with a non-empty abort_reason,
// partitioned by the reason's prefix (storage, too_many_paths, internal).
var QuantumAborts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sageql_quantum_aborts_total",
	Help: "the number of quanta that ended with a non-empty abort_reason",
}, []string{"reason"})

// QuantumResults counts bindings produced per quantum, partitioned by
// graph.
var QuantumResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sageql_quantum_results_total",
	Help: "the number of bindings yielded across all scheduler quanta",
}, GraphLabels)
