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

package wiresurface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sageql/sageql/internal/types"
	"github.com/sageql/sageql/internal/wiresurface"
)

func TestFromMappingsPreservesVariableTextAndValues(t *testing.T) {
	mappings := []types.Mapping{
		{"?s": "http://donald", "?o": `"duck"`},
		{"?s": "http://mickey", "?o": `"mouse"`},
	}

	rows := wiresurface.FromMappings(mappings)

	assert.Len(t, rows, 2)
	assert.Equal(t, "http://donald", rows[0]["?s"])
	assert.Equal(t, `"duck"`, rows[0]["?o"])
	assert.Equal(t, "http://mickey", rows[1]["?s"])
}

func TestFromMappingsEmptyInput(t *testing.T) {
	rows := wiresurface.FromMappings(nil)
	assert.Empty(t, rows)
}
