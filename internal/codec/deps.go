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
	"github.com/sageql/sageql/internal/iter"
	"github.com/sageql/sageql/internal/path"
)

// Deps carries everything DecodeFrame needs to reconstruct live
// operators that a Frame alone cannot: the backend handle for Scan,
// the expression registry for Filter/Bind, and the pipeline's shared
// control-tuples buffer for Piggyback (spec.md §5, "the control-tuples
// buffer is per-pipeline, rebuilt by the caller, not carried in the
// frame"). Path embeds the adapter/registry/graph/limits that
// internal/path's restricted loader needs for the Scan/Join/Union/
// Filter/Reflexive/Closure subset.
type Deps struct {
	Path            *path.Deps
	Buffer          *iter.ControlTuplesBuffer
	ReducedCapacity int
}
