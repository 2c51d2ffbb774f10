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

package sinktest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/sinktest"
	"github.com/sageql/sageql/internal/types"
)

const isa = types.Term("http://isa")

func TestNewFixtureCompilesAgainstSeededGraph(t *testing.T) {
	ctx := context.Background()
	f, cleanup, err := sinktest.NewFixture(1000)
	require.NoError(t, err)
	defer cleanup()

	f.Seed(types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`})

	scan, err := iter.NewScan(ctx, f.Adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: sinktest.DefaultGraph,
	}, nil)
	require.NoError(t, err)

	require.True(t, scan.HasNext(ctx))
	mu, err := scan.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, types.Term("http://donald"), mu["?s"])
}
