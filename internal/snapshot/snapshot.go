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

// Package snapshot defines the opaque consistency token ("as_of") that
// scans pass to the storage adapter's search call, and that
// continuation frames carry so that a resumed scan observes the same
// point-in-time view it started with. Open Question (b) in spec.md §9
// requires this to be propagated through every scan frame; this
// package is the single type used everywhere that requires it.
package snapshot

import (
	"time"

	"github.com/pkg/errors"
)

// Time is a snapshot consistency token. It round-trips through the
// continuation codec as its ISO-8601 text form, matching §4.5's
// "snapshot timestamp in ISO-8601 form" requirement.
type Time struct {
	at time.Time
}

// Now returns the current instant as a Time.
func Now() Time { return Time{at: time.Now().UTC()} }

// Zero is the empty Time, used when no snapshot has been fixed yet
// (fresh queries ask the adapter to pick one on first scan).
var Zero = Time{}

// IsZero reports whether t has never been set.
func (t Time) IsZero() bool { return t.at.IsZero() }

// String renders t in ISO-8601 (RFC3339Nano) form.
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.at.Format(time.RFC3339Nano)
}

// MarshalText implements encoding.TextMarshaler so Time can be used
// directly as a CBOR/JSON map value in continuation frames.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Time) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = Zero
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, string(text))
	if err != nil {
		return errors.Wrap(err, "parsing snapshot timestamp")
	}
	*t = Time{at: parsed}
	return nil
}

// Before reports whether t happened strictly before u.
func (t Time) Before(u Time) bool { return t.at.Before(u.at) }

// Equal reports whether t and u denote the same instant.
func (t Time) Equal(u Time) bool { return t.at.Equal(u.at) }
