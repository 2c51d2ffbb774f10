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

package codec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sageql/internal/codec"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/sinktest"
	"github.com/sageql/sageql/internal/types"
)

const isa = types.Term("http://isa")

// Freeze/restore round-trip (spec.md §8): decode(encode(P)) must
// produce the same remaining bindings as P itself.
func TestScanRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, cleanup, err := sinktest.NewFixture(1000)
	require.NoError(t, err)
	defer cleanup()
	f.Seed(
		types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`},
		types.Triple{Subject: "http://mickey", Predicate: isa, Object: `"mouse"`},
	)

	scan, err := iter.NewScan(ctx, f.Adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: sinktest.DefaultGraph,
	}, nil)
	require.NoError(t, err)

	// Pull one mapping, then freeze.
	var first types.Mapping
	for first == nil {
		first, err = scan.Next(ctx)
		require.NoError(t, err)
	}
	frame := scan.Save()

	raw, err := codec.EncodeFrameBytes(frame)
	require.NoError(t, err)

	env, err := codec.DecodeToken(raw)
	require.NoError(t, err)

	restored, err := codec.DecodeFrame(ctx, f.Codec, env)
	require.NoError(t, err)

	var rest []types.Mapping
	for restored.HasNext(ctx) {
		m, err := restored.Next(ctx)
		require.NoError(t, err)
		if m != nil {
			rest = append(rest, m)
		}
	}
	assert.Len(t, rest, 1)
	assert.NotEqual(t, first["?s"], rest[0]["?s"])
}

func TestJoinRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, cleanup, err := sinktest.NewFixture(1000)
	require.NoError(t, err)
	defer cleanup()
	f.Seed(
		types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`},
		types.Triple{Subject: "http://mickey", Predicate: isa, Object: `"mouse"`},
	)

	left, err := iter.NewScan(ctx, f.Adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: sinktest.DefaultGraph,
	}, nil)
	require.NoError(t, err)
	right, err := iter.NewScan(ctx, f.Adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: sinktest.DefaultGraph,
	}, nil)
	require.NoError(t, err)

	join := iter.NewJoin(left, right)
	frame := join.Save()
	assert.Equal(t, iter.JoinTag, frame.Tag())

	raw, err := codec.EncodeFrameBytes(frame)
	require.NoError(t, err)
	env, err := codec.DecodeToken(raw)
	require.NoError(t, err)

	restored, err := codec.DecodeFrame(ctx, f.Codec, env)
	require.NoError(t, err)
	assert.Equal(t, iter.JoinTag, restored.SerializedName())
}
