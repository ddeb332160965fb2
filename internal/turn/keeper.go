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
	"log/slog"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
)

// minTTL is the floor TTL spec.md §4.3 mandates: max(ttl, 2s).
const minTTL = 2 * time.Second

// Keeper is the background liveness beacon for one presence key (spec.md
// §4.3), grounded on turn/core.py's Keeper: a thread that sets the key with
// a TTL, refreshes it periodically, and deletes it on shutdown. It holds no
// back-reference to its owning Queue; shutdown is coordinated purely
// through a close channel, per spec.md §9 "Cyclic references".
type Keeper struct {
	store store.Store
	key   string
	label string
	ttl   time.Duration

	leave chan struct{}
	done  chan struct{}
}

// StartKeeper writes key=label with a TTL and begins refreshing it every
// ttl-1s in a background goroutine, returning once the initial write has
// completed (spec.md §4.3 invariant: "between return of step 1 and receipt
// of the shutdown signal, presence is guaranteed to be observable").
func StartKeeper(ctx context.Context, st store.Store, key, label string, ttl time.Duration) (*Keeper, error) {
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := st.SetTTL(ctx, key, label, ttl); err != nil {
		return nil, err
	}

	k := &Keeper{
		store: st,
		key:   key,
		label: label,
		ttl:   ttl,
		leave: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go k.run()
	return k, nil
}

func (k *Keeper) run() {
	defer close(k.done)
	refresh := k.ttl - time.Second
	if refresh <= 0 {
		refresh = k.ttl
	}
	timer := time.NewTimer(refresh)
	defer timer.Stop()

	for {
		select {
		case <-k.leave:
			// Best-effort: deletion here uses context.Background because
			// the caller's ctx may already be canceled or done.
			if err := k.store.Del(context.Background(), k.key); err != nil {
				slog.Warn("keeper failed to revoke presence", "key", k.key, "error", err)
			}
			return
		case <-timer.C:
			if err := k.store.Expire(context.Background(), k.key, k.ttl); err != nil {
				slog.Warn("keeper failed to refresh presence", "key", k.key, "error", err)
			}
			timer.Reset(refresh)
		}
	}
}

// Close signals the Keeper to delete its presence key and stop, blocking
// until the deletion has completed (spec.md §4.3: "on graceful close,
// presence is deleted synchronously").
func (k *Keeper) Close() {
	close(k.leave)
	<-k.done
}
