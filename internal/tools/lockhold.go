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
	"sync"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
	"golang.org/x/sync/errgroup"
)

// LockHold acquires and holds one resource per entry in resources (or every
// discoverable resource if none are named) until ctx is canceled, printing
// the same acquiring/locked/released/canceled transcript as turn/tools.py's
// lock. Where the Python tool forks one process per resource, LockHold runs
// one goroutine per resource instead (SPEC_FULL.md "Supplemented features":
// Go has no fork, and goroutines give the same "each resource held
// independently until interrupted" behavior without a process per lock).
func LockHold(ctx context.Context, st store.Store, resources []string, label string, ttl, patience time.Duration, out io.Writer, opts ...turn.QueueOption) error {
	resources, err := resolveResources(ctx, st, resources)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return nil
	}

	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, resource := range resources {
		resource := resource
		g.Go(func() error {
			return holdOne(gctx, st, resource, label, ttl, patience, printf, opts...)
		})
	}
	return g.Wait()
}

func holdOne(ctx context.Context, st store.Store, resource, label string, ttl, patience time.Duration, printf func(string, ...any), opts ...turn.QueueOption) error {
	printf("%s: acquiring\n", resource)
	err := turn.HoldStore(ctx, st, resource, label, ttl, patience, func(holdCtx context.Context) error {
		printf("%s: locked\n", resource)
		<-holdCtx.Done()
		printf("%s: released\n", resource)
		return nil
	}, opts...)

	if errors.Is(err, turn.ErrCanceled) || errors.Is(err, context.Canceled) {
		printf("%s: canceled\n", resource)
		return nil
	}
	return err
}
