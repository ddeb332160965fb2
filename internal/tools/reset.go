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

package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
)

// Reset removes the dispenser and indicator for every idle resource named
// (or every discoverable resource if none are named), grounded on
// turn/tools.py's reset: bump first to account for any abandoned holder,
// then delete only if the queue is still empty and nothing changed the
// dispenser while deciding (spec.md §4.6 "reset", §9 "Reset race").
func Reset(ctx context.Context, st store.Store, resources []string, out io.Writer) error {
	resources, err := resolveResources(ctx, st, resources)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		if err := resetOne(ctx, st, resource, out); err != nil {
			return err
		}
	}
	return nil
}

func resetOne(ctx context.Context, st store.Store, resource string, out io.Writer) error {
	keys := turn.NewKeys(resource)

	values, err := st.MGet(ctx, keys.Indicator, keys.Dispenser)
	if err != nil {
		return fmt.Errorf("tools: reset %s: read: %w", resource, err)
	}
	indicator, indicatorOK := parseOptionalInt(values[0])
	dispenser, dispenserOK := parseOptionalInt(values[1])
	if !indicatorOK || !dispenserOK {
		fmt.Fprintf(out, "No such queue: %q.\n", resource)
		return nil
	}

	q := turn.NewQueue(ctx, st, resource)
	defer q.Close()

	if dispenser-indicator+1 > 0 {
		q.Notify(ctx, "Reset tool bumps.")
		indicator, err = q.Bump(ctx)
		if err != nil {
			return fmt.Errorf("tools: reset %s: bump: %w", resource, err)
		}
	}

	if size := dispenser - indicator + 1; size > 0 {
		fmt.Fprintf(out, "%q is in use by %d user(s).\n", resource, size)
		return nil
	}

	err = st.WatchDelete(ctx, keys.Dispenser, keys.Dispenser, keys.Indicator)
	switch {
	case errors.Is(err, store.ErrWatchConflict):
		fmt.Fprintf(out, "Activity detected for %q.\n", resource)
		return nil
	case err != nil:
		return fmt.Errorf("tools: reset %s: delete: %w", resource, err)
	default:
		return nil
	}
}

func parseOptionalInt(v *string) (int64, bool) {
	if v == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	return n, err == nil
}
