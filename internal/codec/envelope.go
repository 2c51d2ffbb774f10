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

// Package codec implements the C5 continuation codec (spec.md §4.5):
// a discriminated-union encoding of the C2/C3 operator Frame tree,
// using github.com/fxamacker/cbor/v2 for the wire form. Every operator
// variant is encoded as an Envelope carrying its tag plus its own
// CBOR-encoded body; nested child frames are themselves Envelopes,
// so the whole tree round-trips through one recursive Encode/Decode
// pair without any package needing to know every other package's frame
// shape.
package codec

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/iter"
)

// Envelope is one node of the encoded frame tree: a discriminator tag
// (an operator's SerializedName) plus its opaque CBOR body.
type Envelope struct {
	Tag  string          `cbor:"tag"`
	Body cbor.RawMessage `cbor:"body"`
}

// EncodeToken renders a pipeline root's frame as the flat byte string
// returned to the client (spec.md §4.5, "the token returned to the
// client is the byte-encoded root").
func EncodeToken(root iter.Iterator) ([]byte, error) {
	return EncodeFrameBytes(root.Save())
}

// EncodeFrameBytes renders an already-captured Frame (e.g. the one
// sched.Result carries after a quantum breaks) as the same flat byte
// form EncodeToken produces, without requiring the live Iterator that
// produced it.
func EncodeFrameBytes(frame iter.Frame) ([]byte, error) {
	env, err := EncodeFrame(frame)
	if err != nil {
		return nil, err
	}
	b, err := cbor.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "encoding continuation token")
	}
	return b, nil
}

// DecodeToken parses a token previously produced by EncodeToken back
// into its root Envelope.
func DecodeToken(b []byte) (Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decoding continuation token")
	}
	return env, nil
}

func marshalBody(v interface{}) (cbor.RawMessage, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding frame body")
	}
	return cbor.RawMessage(b), nil
}

func unmarshalBody(body cbor.RawMessage, v interface{}) error {
	if err := cbor.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "decoding frame body")
	}
	return nil
}
