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
	"sort"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
)

// Status prints a report for the named resources, or a summary of every
// discoverable resource's queue size if none are named, grounded on
// turn/tools.py's status.
func Status(ctx context.Context, st store.Store, resources []string, out io.Writer) error {
	for i, resource := range resources {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := statusOne(ctx, st, resource, out); err != nil {
			return err
		}
	}
	if len(resources) > 0 {
		return nil
	}
	return statusSummary(ctx, st, out)
}

func statusOne(ctx context.Context, st store.Store, resource string, out io.Writer) error {
	keys := turn.NewKeys(resource)

	indicator, err := st.Get(ctx, keys.Indicator)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tools: status %s: read indicator: %w", resource, err)
	}
	fmt.Fprintf(out, "%-50s%10s\n", resource, indicator)
	fmt.Fprintln(out, separator)

	presenceKeys, err := st.Scan(ctx, keys.Wildcard())
	if err != nil {
		return fmt.Errorf("tools: status %s: scan: %w", resource, err)
	}

	type entry struct {
		serial int64
		key    string
	}
	entries := make([]entry, 0, len(presenceKeys))
	for _, key := range presenceKeys {
		serial, err := turn.SerialFromKey(key)
		if err != nil {
			continue
		}
		entries = append(entries, entry{serial, key})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].serial < entries[j].serial })

	lookup := make([]string, len(entries))
	for i, e := range entries {
		lookup[i] = e.key
	}
	labels, err := st.MGet(ctx, lookup...)
	if err != nil {
		return fmt.Errorf("tools: status %s: read presence: %w", resource, err)
	}
	for i, e := range entries {
		label := ""
		if labels[i] != nil {
			label = *labels[i]
		}
		fmt.Fprintf(out, "%-50s%10d\n", label, e.serial)
	}
	return nil
}

func statusSummary(ctx context.Context, st store.Store, out io.Writer) error {
	resources, err := FindResources(ctx, st)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return nil
	}

	type sized struct {
		size     int64
		resource string
	}
	sizes := make([]sized, 0, len(resources))
	for _, resource := range resources {
		keys := turn.NewKeys(resource)
		values, err := st.MGet(ctx, keys.Dispenser, keys.Indicator)
		if err != nil {
			return fmt.Errorf("tools: status summary: read %s: %w", resource, err)
		}
		dispenser, dispenserOK := parseOptionalInt(values[0])
		indicator, indicatorOK := parseOptionalInt(values[1])
		if !dispenserOK || !indicatorOK {
			continue
		}
		sizes = append(sizes, sized{dispenser - indicator + 1, resource})
	}

	// tools.py sorts `sorted(zip(sizes, resources), reverse=True)`: largest
	// queue first, ties broken by resource name descending.
	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].size != sizes[j].size {
			return sizes[i].size > sizes[j].size
		}
		return sizes[i].resource > sizes[j].resource
	})

	fmt.Fprintf(out, "%-50s%10s\n", "Resource", "Queue size")
	fmt.Fprintln(out, separator)
	for _, s := range sizes {
		fmt.Fprintf(out, "%-50s%10d\n", s.resource, s.size)
	}
	return nil
}
