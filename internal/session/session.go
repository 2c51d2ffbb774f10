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

// Package session implements the C8 session/state manager (spec.md
// §4.8): it turns a frozen pipeline into the "next" value a client
// sees — either the continuation bytes themselves (stateless mode) or
// an opaque plan ID backed by a process-wide store (stateful mode) —
// and, once the scheduler returns, commits or aborts the queried
// graph's backend transaction.
package session

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/sageql/sageql/internal/codec"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/sched"
	"github.com/sageql/sageql/internal/types"
)

// Store persists stateful continuation bytes keyed by plan ID. The
// process-wide in-memory Store below is the reference implementation;
// a deployment that runs more than one engine process needs a shared
// one (e.g. Postgres- or Redis-backed).
type Store interface {
	Save(ctx context.Context, planID string, bytes []byte) error
	Load(ctx context.Context, planID string) ([]byte, bool, error)
	Delete(ctx context.Context, planID string) error
}

// Manager is the C8 session/state manager. One Manager serves every
// request against a given deployment; its Store and singleflight group
// are the only state shared across concurrent requests.
type Manager struct {
	store Store
	group singleflight.Group
}

// NewManager constructs a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Resume decodes the client-supplied continuation (plan ID if
// stateless is false, raw token text otherwise) back into a live
// pipeline ready to pull from, using deps to supply the backend/
// registry/buffer handles the codec needs.
func (m *Manager) Resume(ctx context.Context, deps *codec.Deps, stateless bool, next string) (iter.Iterator, error) {
	raw, err := m.lookup(ctx, stateless, next)
	if err != nil {
		return nil, err
	}
	env, err := codec.DecodeToken(raw)
	if err != nil {
		return nil, err
	}
	return codec.DecodeFrame(ctx, deps, env)
}

// lookup resolves next to its raw continuation bytes. In stateful mode
// concurrent resumes of the same plan ID (e.g. a client retry racing
// its original request) are coalesced through group so the store is
// read at most once per in-flight plan ID.
func (m *Manager) lookup(ctx context.Context, stateless bool, next string) ([]byte, error) {
	if stateless {
		raw, err := base64.StdEncoding.DecodeString(next)
		if err != nil {
			return nil, errors.Wrap(err, "decoding continuation token")
		}
		return raw, nil
	}
	v, err, _ := m.group.Do(next, func() (interface{}, error) {
		raw, ok, err := m.store.Load(ctx, next)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("session: unknown plan id %q", next)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Freeze persists frame (a pipeline's just-captured continuation,
// typically sched.Result.Frame) and returns the client-facing "next"
// value: the encoded bytes themselves in stateless mode, or a plan ID
// in stateful mode (spec.md §4.8). priorPlanID, if non-empty, is
// reused as the plan ID on a resumed stateful plan's next freeze
// rather than minting a new one, so a client's next-link stays stable
// across a multi-quantum query.
func (m *Manager) Freeze(ctx context.Context, stateless bool, priorPlanID string, frame iter.Frame) (string, error) {
	raw, err := codec.EncodeFrameBytes(frame)
	if err != nil {
		return "", err
	}
	if stateless {
		return base64.StdEncoding.EncodeToString(raw), nil
	}
	planID := priorPlanID
	if planID == "" {
		planID = uuid.NewString()
	}
	if err := m.store.Save(ctx, planID, raw); err != nil {
		return "", err
	}
	return planID, nil
}

// Finish releases any stored state for a plan that has just completed
// (spec.md §4.8, "On done=true, delete the stored plan"). It is a
// no-op in stateless mode or when planID is empty.
func (m *Manager) Finish(ctx context.Context, stateless bool, planID string) error {
	if stateless || planID == "" {
		return nil
	}
	return m.store.Delete(ctx, planID)
}

// Finalize commits or aborts graph's backend transaction depending on
// result (spec.md §4.8, "After the scheduler returns, the session
// manager commits or aborts the backend transaction ... depending on
// the abort field"). Per spec.md §5 there is no partial commit: a
// quantum that completed without an abort commits its writes even if
// the pipeline is not yet done, since the next quantum reopens its own
// transaction scope on resume.
func (m *Manager) Finalize(ctx context.Context, adapter types.StorageAdapter, graph types.Term, result sched.Result) error {
	if result.Abort != "" {
		return adapter.Abort(ctx, graph)
	}
	return adapter.Commit(ctx, graph)
}
