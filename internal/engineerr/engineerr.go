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

// Package engineerr contains the error taxonomy shared by every
// component of the query engine. Error kinds are distinguished by type
// rather than by sentinel value so that callers can recover structured
// detail (the abort reason text, the offending triple) with errors.As.
package engineerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnsupportedSPARQLError is returned by the compiler when it meets a
// query feature outside the operators named in the component design.
type UnsupportedSPARQLError struct {
	Feature string
}

func (e *UnsupportedSPARQLError) Error() string {
	return fmt.Sprintf("unsupported SPARQL feature: %s", e.Feature)
}

// IsUnsupportedSPARQL reports whether err (or any error it wraps) is an
// UnsupportedSPARQLError.
func IsUnsupportedSPARQL(err error) (*UnsupportedSPARQLError, bool) {
	var u *UnsupportedSPARQLError
	return u, errors.As(err, &u)
}

// StorageError wraps a backend failure encountered mid-quantum. The
// scheduler surfaces it as abort_reason="storage:<detail>".
type StorageError struct {
	Detail string
	Cause  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s", e.Detail)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// AbortReason renders the scheduler-facing abort string for this error.
func (e *StorageError) AbortReason() string {
	return "storage:" + e.Detail
}

// NewStorageError wraps cause with a human-readable detail string.
func NewStorageError(detail string, cause error) *StorageError {
	return &StorageError{Detail: detail, Cause: cause}
}

// IsStorageError reports whether err (or any error it wraps) is a StorageError.
func IsStorageError(err error) (*StorageError, bool) {
	var s *StorageError
	return s, errors.As(err, &s)
}

// TooManyResultsError is raised when the control-tuples buffer exceeds
// its configured cap. The scheduler surfaces it as
// abort_reason="too_many_paths" and returns whatever partial results
// were already produced, without a continuation.
type TooManyResultsError struct {
	Cap int
}

func (e *TooManyResultsError) Error() string {
	return fmt.Sprintf("too many control tuples: cap %d exceeded", e.Cap)
}

// AbortReason renders the scheduler-facing abort string for this error.
func (e *TooManyResultsError) AbortReason() string { return "too_many_paths" }

// IsTooManyResults reports whether err (or any error it wraps) is a TooManyResultsError.
func IsTooManyResults(err error) (*TooManyResultsError, bool) {
	var t *TooManyResultsError
	return t, errors.As(err, &t)
}

// ParseError describes a failure to parse or evaluate a FILTER/BIND
// expression for one particular input mapping. Per the propagation
// policy, callers must treat this as "the expression evaluated to
// false for that mapping" rather than as fatal: the row is dropped and
// the error is only used for logging.
type ParseError struct {
	Expression string
	Cause      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in expression %q: %v", e.Expression, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NewParseError builds a ParseError for the given expression text.
func NewParseError(expression string, cause error) *ParseError {
	return &ParseError{Expression: expression, Cause: cause}
}

// TermEncodingError describes a malformed term read back from storage.
// Per the propagation policy the offending triple is skipped and
// logged, never fatal.
type TermEncodingError struct {
	Raw   string
	Cause error
}

func (e *TermEncodingError) Error() string {
	return fmt.Sprintf("malformed term encoding %q: %v", e.Raw, e.Cause)
}

func (e *TermEncodingError) Unwrap() error { return e.Cause }

// NewTermEncodingError builds a TermEncodingError for the given raw text.
func NewTermEncodingError(raw string, cause error) *TermEncodingError {
	return &TermEncodingError{Raw: raw, Cause: cause}
}

// AbortReasoner is implemented by any error kind that carries a
// scheduler-facing abort_reason string (StorageError, TooManyResultsError).
type AbortReasoner interface {
	error
	AbortReason() string
}

// AbortReasonOf extracts the abort_reason text for err, if any of the
// errors in its chain implement AbortReasoner. The scheduler uses this
// to surface the first abort it sees at the next boundary.
func AbortReasonOf(err error) (string, bool) {
	var ar AbortReasoner
	if errors.As(err, &ar) {
		return ar.AbortReason(), true
	}
	return "", false
}
