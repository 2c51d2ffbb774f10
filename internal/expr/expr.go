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

// Package expr parses and evaluates the SPARQL expressions used by the
// Filter and Bind operators (spec.md §4.2). Per DESIGN NOTES, custom
// functions are held in an explicit Registry passed into the compiler
// at pipeline construction rather than registered globally at process
// start.
package expr

import (
	"github.com/pkg/errors"
	"github.com/sageql/sageql/internal/term"
	"github.com/sageql/sageql/internal/types"
)

// Node is a parsed expression. Every parsed expression is exactly one
// of the concrete node types below.
type Node interface {
	Eval(reg *Registry, mu types.Mapping) (types.Term, error)
}

// Var references a bound variable.
type Var struct{ Name types.Term }

// Eval implements Node.
func (v Var) Eval(_ *Registry, mu types.Mapping) (types.Term, error) {
	val, ok := mu[v.Name]
	if !ok {
		return "", errors.Errorf("unbound variable %s", v.Name)
	}
	return val, nil
}

// Const is a literal or IRI constant already in N3 form.
type Const struct{ Value types.Term }

// Eval implements Node.
func (c Const) Eval(*Registry, types.Mapping) (types.Term, error) { return c.Value, nil }

// Call is a function application, resolved against the Registry
// passed to Eval so that custom functions never need process-global
// state.
type Call struct {
	Name string
	Args []Node
}

// Eval implements Node.
func (c Call) Eval(reg *Registry, mu types.Mapping) (types.Term, error) {
	fn, ok := reg.Lookup(c.Name)
	if !ok {
		return "", errors.Errorf("unknown function %s", c.Name)
	}
	args := make([]types.Term, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(reg, mu)
		if err != nil {
			return "", err
		}
		args[i] = v
	}
	return fn(args)
}

// BinOp is a binary operator application: comparison, equality, or
// boolean connective.
type BinOp struct {
	Op          string // "=", "!=", "<", "<=", ">", ">=", "&&", "||"
	Left, Right Node
}

// Eval implements Node.
func (b BinOp) Eval(reg *Registry, mu types.Mapping) (types.Term, error) {
	if b.Op == "&&" || b.Op == "||" {
		lv, err := b.Left.Eval(reg, mu)
		if err != nil {
			return boolTerm(false), nil // unbound/error operands are falsy, not fatal
		}
		lt := Truthy(lv)
		if b.Op == "&&" && !lt {
			return boolTerm(false), nil
		}
		if b.Op == "||" && lt {
			return boolTerm(true), nil
		}
		rv, err := b.Right.Eval(reg, mu)
		if err != nil {
			return boolTerm(false), nil
		}
		return boolTerm(Truthy(rv)), nil
	}

	lv, lerr := b.Left.Eval(reg, mu)
	rv, rerr := b.Right.Eval(reg, mu)
	if lerr != nil || rerr != nil {
		return boolTerm(false), nil
	}
	switch b.Op {
	case "=":
		return boolTerm(termEqual(lv, rv)), nil
	case "!=":
		return boolTerm(!termEqual(lv, rv)), nil
	}
	lf, lok := term.NumericValue(lv)
	rf, rok := term.NumericValue(rv)
	if !lok || !rok {
		return boolTerm(false), nil
	}
	switch b.Op {
	case "<":
		return boolTerm(lf < rf), nil
	case "<=":
		return boolTerm(lf <= rf), nil
	case ">":
		return boolTerm(lf > rf), nil
	case ">=":
		return boolTerm(lf >= rf), nil
	}
	return "", errors.Errorf("unknown operator %s", b.Op)
}

// Not is the logical negation of its operand.
type Not struct{ Operand Node }

// Eval implements Node.
func (n Not) Eval(reg *Registry, mu types.Mapping) (types.Term, error) {
	v, err := n.Operand.Eval(reg, mu)
	if err != nil {
		return boolTerm(true), nil
	}
	return boolTerm(!Truthy(v)), nil
}

func termEqual(a, b types.Term) bool {
	if a == b {
		return true
	}
	af, aok := term.NumericValue(a)
	bf, bok := term.NumericValue(b)
	return aok && bok && af == bf
}

func boolTerm(b bool) types.Term {
	if b {
		return term.MakeString("true")
	}
	return term.MakeString("false")
}

// Truthy implements SPARQL's effective boolean value for the narrow
// set of term shapes this engine produces: a literal whose lexical
// form is "true"/"false", a number (true when non-zero), or any other
// literal (true when its lexical form is non-empty). A term that is not
// a literal is falsy; an unbound reference is handled by the caller.
func Truthy(t types.Term) bool {
	lit, ok := term.ParseLiteral(t)
	if !ok {
		return false
	}
	switch lit.Lexical {
	case "true":
		return true
	case "false":
		return false
	}
	if f, ok := term.NumericValue(t); ok {
		return f != 0
	}
	return lit.Lexical != ""
}
