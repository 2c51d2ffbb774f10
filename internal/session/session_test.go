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

package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/session"
	"github.com/sageql/sageql/internal/sinktest"
	"github.com/sageql/sageql/internal/types"
)

const isa = types.Term("http://isa")

func newFrozenScan(t *testing.T) (*sinktest.Fixture, iter.Frame) {
	t.Helper()
	ctx := context.Background()
	f, cleanup, err := sinktest.NewFixture(1000)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	f.Seed(types.Triple{Subject: "http://donald", Predicate: isa, Object: `"duck"`})

	scan, err := iter.NewScan(ctx, f.Adapter, types.Triple{
		Subject: "?s", Predicate: isa, Object: "?o", Graph: sinktest.DefaultGraph,
	}, nil)
	require.NoError(t, err)
	return f, scan.Save()
}

func TestFreezeResumeStateless(t *testing.T) {
	ctx := context.Background()
	f, frame := newFrozenScan(t)
	mgr := session.NewManager(session.NewMemStore())

	next, err := mgr.Freeze(ctx, true, "", frame)
	require.NoError(t, err)
	assert.NotEmpty(t, next)

	root, err := mgr.Resume(ctx, f.Codec, true, next)
	require.NoError(t, err)
	assert.Equal(t, "scan", root.SerializedName())
}

func TestFreezeResumeStatefulReusesPlanID(t *testing.T) {
	ctx := context.Background()
	f, frame := newFrozenScan(t)
	mgr := session.NewManager(session.NewMemStore())

	planID, err := mgr.Freeze(ctx, false, "", frame)
	require.NoError(t, err)
	require.NotEmpty(t, planID)

	root, err := mgr.Resume(ctx, f.Codec, false, planID)
	require.NoError(t, err)
	assert.Equal(t, "scan", root.SerializedName())

	reusedID, err := mgr.Freeze(ctx, false, planID, root.Save())
	require.NoError(t, err)
	assert.Equal(t, planID, reusedID)

	require.NoError(t, mgr.Finish(ctx, false, planID))
	_, err = mgr.Resume(ctx, f.Codec, false, planID)
	assert.Error(t, err)
}

func TestResumeUnknownStatefulPlanErrors(t *testing.T) {
	ctx := context.Background()
	f, cleanup, err := sinktest.NewFixture(1000)
	require.NoError(t, err)
	defer cleanup()
	mgr := session.NewManager(session.NewMemStore())

	_, err = mgr.Resume(ctx, f.Codec, false, "does-not-exist")
	assert.Error(t, err)
}
