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

package turn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"golang.org/x/sync/errgroup"
)

// clients memoizes Store connections by connection parameters, so that
// repeated Lockers built against equal config.Redis values share one
// connection pool instead of dialing again (spec.md §4.5: "a Locker is
// memoized by connection parameters"), grounded on turn/locking.py's
// module-level cache keyed by the md5 of the connection kwargs. config.Redis
// is a small comparable struct, so it serves directly as the memoization
// key rather than a separately computed hash.
var (
	clientsMu sync.Mutex
	clients   = map[config.Redis]store.Store{}
	// newStore is swapped out in tests to avoid dialing real Redis.
	newStore = store.NewRedis
)

// clientFor returns the memoized Store for cfg, dialing it on first use.
func clientFor(ctx context.Context, cfg config.Redis) (store.Store, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	if st, ok := clients[cfg]; ok {
		return st, nil
	}
	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("turn: connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	clients[cfg] = st
	return st, nil
}

// Locker is the scoped-acquisition facade of spec.md §4.5, grounded on
// turn/locking.py's Locker: acquire a serial, wait for it to be granted, run
// the caller's critical section, and release unconditionally on every exit
// path (normal return, error return, or panic).
//
// Fencing is out of scope (spec.md §9 "Fencing"): Hold guarantees that at
// most one live holder observes the granted indicator value at a time, but
// it does not protect the guarded resource against a holder that is judged
// dead by its TTL and then resumes writing after having been bumped past.
// Callers whose critical section can outlive its TTL need a fencing token
// from elsewhere; turnqueue does not issue one.
type Locker struct {
	Resource string
	Label    string
	TTL      time.Duration
	Patience time.Duration
}

// NewLocker builds a Locker for resource. label identifies the caller in
// trace messages (spec.md §6.3); ttl is the presence TTL floor passed to the
// Keeper; patience is how long Wait tolerates silence before bumping.
func NewLocker(resource, label string, ttl, patience time.Duration) *Locker {
	return &Locker{Resource: resource, Label: label, TTL: ttl, Patience: patience}
}

// Hold acquires the lock on l.Resource against the Redis described by cfg,
// waits for its turn, runs fn, and releases on every exit path — including a
// panic in fn, which is recovered, re-thrown after release completes, and
// reported to Release as OutcomeCrashed (spec.md §4.5 "hold").
func (l *Locker) Hold(ctx context.Context, cfg config.Redis, fn func(ctx context.Context) error, opts ...QueueOption) error {
	st, err := clientFor(ctx, cfg)
	if err != nil {
		return err
	}
	return HoldStore(ctx, st, l.Resource, l.Label, l.TTL, l.Patience, fn, opts...)
}

// HoldStore is Hold's connection-agnostic core: it takes an already-open
// Store instead of connection parameters, so callers that already hold a
// Store (every internal/tools function, and tests) don't need a Locker or
// the memoized client cache just to run one critical section. opts are
// forwarded to NewQueue, letting a caller attach a Recorder without
// threading one through Locker itself.
func HoldStore(ctx context.Context, st store.Store, resource, label string, ttl, patience time.Duration, fn func(ctx context.Context) error, opts ...QueueOption) (err error) {
	q := NewQueue(ctx, st, resource, opts...)
	defer func() {
		if cerr := q.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("turn: close queue %s: %w", resource, cerr)
		}
	}()

	serial, keeper, err := q.Draw(ctx, label, ttl)
	if err != nil {
		return fmt.Errorf("turn: draw %s: %w", resource, err)
	}

	outcome := OutcomeNormal
	var panicked any
	defer func() {
		if rerr := q.Release(ctx, serial, label, keeper, outcome); rerr != nil && err == nil {
			err = fmt.Errorf("turn: release %s: %w", resource, rerr)
		}
		if panicked != nil {
			panic(panicked)
		}
	}()

	if err = q.Wait(ctx, serial, patience); err != nil {
		outcome = OutcomeCrashed
		return err
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome = OutcomeCrashed
				panicked = r
			}
		}()
		err = fn(ctx)
	}()
	if err != nil {
		outcome = OutcomeCrashed
	}
	return err
}

// shutdownAll closes every memoized client, used by tests and by graceful
// process shutdown to avoid leaking connections across test cases.
func shutdownAll() error {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	g := new(errgroup.Group)
	for key, st := range clients {
		st := st
		key := key
		g.Go(func() error {
			if err := st.Close(); err != nil {
				return fmt.Errorf("turn: close client %s:%d: %w", key.Host, key.Port, err)
			}
			return nil
		})
		delete(clients, key)
	}
	return g.Wait()
}
