// SPDX-License-Identifier: AGPL-3.0-or-later
// turnqueue - a fair, FIFO, mutually exclusive distributed lock service
// Copyright (C) 2026 The turnqueue Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package turn implements the core dispenser/indicator lock design from
// spec.md: KeyNamer, Keeper, Queue, and Locker.
package turn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefix is the fixed key prefix every turnqueue key and channel lives
// under (spec.md §3, §6.1).
const Prefix = "turn"

// ErrMalformedKey is returned when a presence key does not match the
// expected "turn:<resource>:serial:<n>" pattern (spec.md §7 item 6:
// "presence-key parse failure... treat as malformed, ignore").
var ErrMalformedKey = errors.New("turn: malformed presence key")

// Keys names the keys and channels for a single resource (spec.md §4.1,
// §6.1), grounded on turn/core.py's Keys class.
type Keys struct {
	Resource  string
	Dispenser string
	Indicator string
	Internal  string
	External  string
}

// NewKeys builds the Keys for resource.
func NewKeys(resource string) Keys {
	return Keys{
		Resource:  resource,
		Dispenser: fmt.Sprintf("%s:%s:dispenser", Prefix, resource),
		Indicator: fmt.Sprintf("%s:%s:indicator", Prefix, resource),
		Internal:  fmt.Sprintf("%s:%s:internal", Prefix, resource),
		External:  fmt.Sprintf("%s:%s:external", Prefix, resource),
	}
}

// Serial returns the presence key for serial n.
func (k Keys) Serial(n int64) string {
	return fmt.Sprintf("%s:%s:serial:%d", Prefix, k.Resource, n)
}

// Wildcard returns the glob pattern matching every presence key for this
// resource, used by status/reset to enumerate outstanding serials.
func (k Keys) Wildcard() string {
	return fmt.Sprintf("%s:%s:serial:*", Prefix, k.Resource)
}

// DispenserWildcardSuffix is the suffix every resource's dispenser key ends
// with; ResourceFromDispenserKey strips it to recover the resource name.
const DispenserWildcardSuffix = ":dispenser"

// DispenserWildcard returns the glob pattern matching every resource's
// dispenser key.
func DispenserWildcard() string {
	return fmt.Sprintf("%s:*:dispenser", Prefix)
}

// ResourceFromDispenserKey extracts the resource name from a dispenser key
// produced by DispenserWildcard's scan.
func ResourceFromDispenserKey(key string) (string, bool) {
	if !strings.HasPrefix(key, Prefix+":") || !strings.HasSuffix(key, DispenserWildcardSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, Prefix+":"), DispenserWildcardSuffix), true
}

// SerialFromKey parses the serial number out of a presence key of the form
// "turn:<resource>:serial:<n>", grounded on turn/core.py's Keys.number.
func SerialFromKey(key string) (int64, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 4 || parts[0] != Prefix || parts[len(parts)-2] != "serial" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return n, nil
}
