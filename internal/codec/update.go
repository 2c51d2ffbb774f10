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

package codec

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/types"
	"github.com/sageql/sageql/internal/update"
)

// This file extends Encode/DecodeFrame to the C7 update operator tags
// (spec.md §4.7). It lives alongside frame.go rather than inside it so
// that internal/update's import stays scoped to the one file that
// needs it.

type wireModify struct {
	Graph           types.Term
	DeleteTemplates []types.Triple
	InsertTemplates []types.Triple
	Read            Envelope
}

type wireIfExists struct {
	Read     Envelope
	Resolved bool
	Exists   bool
}

type wireUpdateSequence struct {
	IfExists Envelope
	Delete   Envelope
	Insert   Envelope
	Phase    int
}

func encodeUpdateFrame(f iter.Frame) (Envelope, bool, error) {
	switch fr := f.(type) {
	case *update.QuadFrame:
		return mustEnvelope(fr.Tag(), fr)

	case *update.ModifyFrame:
		read, err := EncodeFrame(fr.Read)
		if err != nil {
			return Envelope{}, true, err
		}
		env, err := envelope(update.ModifyTag, &wireModify{
			Graph: fr.Graph, DeleteTemplates: fr.DeleteTemplates, InsertTemplates: fr.InsertTemplates, Read: read,
		})
		return env, true, err

	case *update.IfExistsFrame:
		read, err := EncodeFrame(fr.Read)
		if err != nil {
			return Envelope{}, true, err
		}
		env, err := envelope(update.IfExistsTag, &wireIfExists{Read: read, Resolved: fr.Resolved, Exists: fr.Exists})
		return env, true, err

	case *update.UpdateSequenceFrame:
		ifExists, err := EncodeFrame(fr.IfExists)
		if err != nil {
			return Envelope{}, true, err
		}
		del, err := EncodeFrame(fr.Delete)
		if err != nil {
			return Envelope{}, true, err
		}
		ins, err := EncodeFrame(fr.Insert)
		if err != nil {
			return Envelope{}, true, err
		}
		env, err := envelope(update.UpdateSequenceTag, &wireUpdateSequence{IfExists: ifExists, Delete: del, Insert: ins, Phase: fr.Phase})
		return env, true, err

	default:
		return Envelope{}, false, nil
	}
}

func mustEnvelope(tag string, v interface{}) (Envelope, bool, error) {
	env, err := envelope(tag, v)
	return env, true, err
}

// decodeUpdateFrame handles the update-operator tags for DecodeFrame.
// It needs the storage adapter directly (for QuadMutation reload)
// rather than anything path.Deps offers beyond that, so it takes deps
// to reuse deps.Path.Adapter.
func decodeUpdateFrame(ctx context.Context, deps *Deps, env Envelope) (iter.Iterator, bool, error) {
	switch env.Tag {
	case update.InsertDataTag, update.DeleteDataTag:
		var f update.QuadFrame
		if err := unmarshalBody(env.Body, &f); err != nil {
			return nil, true, err
		}
		return update.LoadQuadMutation(deps.Path.Adapter, &f), true, nil

	case update.ModifyTag:
		var w wireModify
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, true, err
		}
		read, err := DecodeFrame(ctx, deps, w.Read)
		if err != nil {
			return nil, true, err
		}
		f := &update.ModifyFrame{Graph: w.Graph, DeleteTemplates: w.DeleteTemplates, InsertTemplates: w.InsertTemplates}
		return update.LoadSerializableUpdate(deps.Path.Adapter, f, read), true, nil

	case update.IfExistsTag:
		var w wireIfExists
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, true, err
		}
		read, err := DecodeFrame(ctx, deps, w.Read)
		if err != nil {
			return nil, true, err
		}
		return update.LoadIfExistsOperator(&update.IfExistsFrame{Resolved: w.Resolved, Exists: w.Exists}, read), true, nil

	case update.UpdateSequenceTag:
		var w wireUpdateSequence
		if err := unmarshalBody(env.Body, &w); err != nil {
			return nil, true, err
		}
		ifExistsIter, err := DecodeFrame(ctx, deps, w.IfExists)
		if err != nil {
			return nil, true, err
		}
		ifExists, ok := ifExistsIter.(*update.IfExistsOperator)
		if !ok {
			return nil, true, errors.Errorf("codec: update_sequence.if_exists decoded as %T", ifExistsIter)
		}
		del, err := DecodeFrame(ctx, deps, w.Delete)
		if err != nil {
			return nil, true, err
		}
		ins, err := DecodeFrame(ctx, deps, w.Insert)
		if err != nil {
			return nil, true, err
		}
		return update.LoadUpdateSequenceOperator(&update.UpdateSequenceFrame{Phase: w.Phase}, ifExists, del, ins), true, nil

	default:
		return nil, false, nil
	}
}
