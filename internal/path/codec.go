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

package path

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// encodeExpr renders e as the opaque bytes carried by
// iter.ClosureFrame.PathSpec (spec.md §4.5): C5 decodes these back
// into an Expr, without internal/iter ever needing to import this
// package.
func encodeExpr(e Expr) ([]byte, error) {
	b, err := cbor.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "encoding path spec")
	}
	return b, nil
}

// DecodeExpr reverses encodeExpr. Exported for internal/codec, which
// holds the opaque bytes produced by a Closure's Save and must rebuild
// the matching PathFactory on Decode.
func DecodeExpr(b []byte) (Expr, error) {
	var e Expr
	if err := cbor.Unmarshal(b, &e); err != nil {
		return Expr{}, errors.Wrap(err, "decoding path spec")
	}
	return e, nil
}
