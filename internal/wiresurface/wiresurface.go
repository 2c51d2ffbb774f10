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

// Package wiresurface fixes the request/response shape of spec.md §6
// at the function-call level, independent of transport: both the
// HTTP handler and a future gRPC handler in cmd/sageql build one of
// these from the wire bytes and hand it to internal/wiring.Engine.
package wiresurface

import "github.com/sageql/sageql/internal/types"

// Request is one query or update invocation. Next, if non-empty,
// resumes a previously frozen pipeline instead of compiling Query
// fresh; when Next is set, Query and DefaultGraphURI are ignored (the
// frozen frame already carries the graph it was compiled against).
type Request struct {
	Query           string `json:"query"`
	DefaultGraphURI string `json:"default_graph_uri"`
	Next            string `json:"next,omitempty"`
}

// Response is one quantum's result (spec.md §6). Bindings maps the
// SPARQL projected-variable text, leading "?" included, to its N3
// text value — which is exactly how internal/types.Mapping already
// keys and stores its entries, so building a Response is a type
// conversion, not a serialization.
type Response struct {
	Bindings []map[string]string `json:"bindings"`
	HasNext  bool                `json:"hasNext"`
	Next     string              `json:"next,omitempty"`
}

// FromMappings converts the engine's internal solution mappings into
// the wire's plain string-keyed form.
func FromMappings(mappings []types.Mapping) []map[string]string {
	out := make([]map[string]string, len(mappings))
	for i, m := range mappings {
		row := make(map[string]string, len(m))
		for k, v := range m {
			row[string(k)] = string(v)
		}
		out[i] = row
	}
	return out
}
