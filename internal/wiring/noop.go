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

package wiring

import (
	"context"

	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/path"
	"github.com/sageql/sageql/internal/plan"
	"github.com/sageql/sageql/internal/types"
)

// UnimplementedQueryParser is the default QueryParser: it always
// reports SPARQL-text parsing as unsupported. SPARQL-text parsing is
// explicitly out of scope for this engine (spec.md §1); a deployment
// that accepts query text rather than pre-parsed algebra supplies its
// own QueryParser built around a real SPARQL parser.
func UnimplementedQueryParser(_ string, _ types.Term) (plan.Node, error) {
	return nil, &engineerr.UnsupportedSPARQLError{Feature: "SPARQL text parsing (no QueryParser configured)"}
}

// UnimplementedUpdateParser is the UpdateParser analogue of
// UnimplementedQueryParser.
func UnimplementedUpdateParser(_ context.Context, _ *path.Deps, _ string, _ types.Term) (iter.Iterator, error) {
	return nil, &engineerr.UnsupportedSPARQLError{Feature: "SPARQL update text parsing (no UpdateParser configured)"}
}
