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

package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Exercises the internal malformed-term detection directly: a real
// Store needs a live pgxpool.Pool, which these unit tests don't stand
// up, but the term-validation step Search relies on is a pure
// function and testable in isolation.
func TestFirstMalformedTermAcceptsWellFormedColumns(t *testing.T) {
	raw, ok := firstMalformedTerm("g", "http://donald", "http://isa", `"duck"`)
	assert.True(t, ok)
	assert.Empty(t, raw)
}

func TestFirstMalformedTermRejectsUnterminatedLiteral(t *testing.T) {
	raw, ok := firstMalformedTerm("g", "http://donald", "http://isa", `"duck`)
	assert.False(t, ok)
	assert.Equal(t, `"duck`, raw)
}

func TestFirstMalformedTermAcceptsTypedAndTaggedLiterals(t *testing.T) {
	raw, ok := firstMalformedTerm("g", "http://donald", "http://age", `"12"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.True(t, ok)
	assert.Empty(t, raw)
}
