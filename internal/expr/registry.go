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

package expr

import "github.com/sageql/sageql/internal/types"

// Func is a built-in or user-supplied SPARQL extension function.
type Func func(args []types.Term) (types.Term, error)

// Registry holds the functions available to expression evaluation.
// Per DESIGN NOTES, this is constructed explicitly and threaded
// through the compiler rather than registered globally at process
// start, which keeps it testable and safe to share across concurrent
// requests.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a Registry preloaded with the built-ins exercised
// by the spec's end-to-end scenarios (STR, CONCAT, MD5, URI, IRI).
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func, len(builtins))}
	for name, fn := range builtins {
		r.funcs[name] = fn
	}
	return r
}

// Register adds or overrides a function under name. The name is stored
// upper-cased, so lookups are case-insensitive.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[upper(name)] = fn
}

// Lookup resolves name (case-insensitively, matching SPARQL's
// function-name rules) to a Func.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[upper(name)]
	return fn, ok
}

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
