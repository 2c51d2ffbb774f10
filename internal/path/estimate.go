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
	"context"

	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/snapshot"
	"github.com/sageql/sageql/internal/types"
)

// Estimate computes the selectivity estimate C4's join ordering uses
// for a path pattern {subject, e, object}, following the recursive
// rules of the estimator this engine is grounded on: a Sequence is as
// selective as its most selective direction (the min of the forward
// and backward endpoint-hop cardinalities, since either hop bounds the
// whole chain); an Alternative is the sum of its branches (a bag-union
// never has fewer results than any one branch); a Mul takes the
// cardinality of its inner one-hop pattern, substituting whichever
// endpoint is bound (the closure itself can only ever narrow that);
// and a Negated set is estimated as a scan with a variable predicate.
// e must already be Normalize()d, so Inverse never appears.
func Estimate(ctx context.Context, d *Deps, subject types.Term, e Expr, object types.Term) (types.Cardinality, error) {
	switch e.Kind {
	case IRI:
		s, o := subject, object
		if e.Reversed {
			s, o = object, subject
		}
		return scanCardinality(ctx, d, types.Triple{Subject: s, Predicate: e.IRI, Object: o, Graph: d.Graph})

	case Negated:
		s, o := subject, object
		if e.Reversed {
			s, o = object, subject
		}
		return scanCardinality(ctx, d, types.Triple{Subject: s, Predicate: "?_negPred", Object: o, Graph: d.Graph})

	case Sequence:
		if len(e.Parts) == 0 {
			return 0, errors.New("path: empty sequence")
		}
		forward, err := Estimate(ctx, d, subject, e.Parts[0], "?_seqFwd")
		if err != nil {
			return 0, err
		}
		backward, err := Estimate(ctx, d, "?_seqBwd", e.Parts[len(e.Parts)-1], object)
		if err != nil {
			return 0, err
		}
		if forward < backward {
			return forward, nil
		}
		return backward, nil

	case Alternative:
		var total types.Cardinality
		for _, part := range e.Parts {
			card, err := Estimate(ctx, d, subject, part, object)
			if err != nil {
				return 0, err
			}
			total += card
		}
		return total, nil

	case Mul:
		switch {
		case !subject.IsVariable():
			return Estimate(ctx, d, subject, *e.Inner, "?_mulObj")
		case !object.IsVariable():
			return Estimate(ctx, d, "?_mulSubj", *e.Inner, object)
		default:
			return Estimate(ctx, d, "?_mulSubj", *e.Inner, "?_mulObj")
		}

	case Inverse:
		return 0, errors.New("path: Inverse node escaped normalization")
	default:
		return 0, errors.Errorf("path: unknown kind %d", e.Kind)
	}
}

// scanCardinality asks the adapter for pattern's cardinality without
// retaining the opened cursor, the same probe the grounding estimator
// performs by constructing and measuring a throwaway scan iterator.
func scanCardinality(ctx context.Context, d *Deps, pattern types.Triple) (types.Cardinality, error) {
	if !pattern.Graph.IsVariable() && !d.Adapter.GraphExists(ctx, pattern.Graph) {
		return 0, nil
	}
	_, card, err := d.Adapter.Search(ctx, pattern, "", snapshot.Now())
	if err != nil {
		return 0, errors.Wrap(err, "estimating path step cardinality")
	}
	return card, nil
}
