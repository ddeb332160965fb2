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

// Package tools implements the operator primitives of spec.md §4.6: follow,
// reset, status, and lock-hold, grounded operation-for-operation on
// turn/tools.py.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
)

// separator is printed under status headers, matching tools.py's
// `SEPARATOR = 60 * '-'`.
const separator = "------------------------------------------------------------"

// FindResources discovers every resource with a dispenser key, grounded on
// turn/tools.py's find_resources (a scan over the dispenser wildcard).
func FindResources(ctx context.Context, st store.Store) ([]string, error) {
	keys, err := st.Scan(ctx, turn.DispenserWildcard())
	if err != nil {
		return nil, fmt.Errorf("tools: find resources: %w", err)
	}
	resources := make([]string, 0, len(keys))
	for _, key := range keys {
		if resource, ok := turn.ResourceFromDispenserKey(key); ok {
			resources = append(resources, resource)
		}
	}
	sort.Strings(resources)
	return resources, nil
}

// resolveResources returns resources unchanged if non-empty, or every
// discoverable resource otherwise — the "operate on everything if nothing
// named" convention every tools.py function shares.
func resolveResources(ctx context.Context, st store.Store, resources []string) ([]string, error) {
	if len(resources) > 0 {
		return resources, nil
	}
	return FindResources(ctx, st)
}
