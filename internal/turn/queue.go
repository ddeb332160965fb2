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
	"log/slog"
	"strconv"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
)

// Queue is a per-resource handle on the dispenser/indicator state machine
// (spec.md §4.4), grounded directly on turn/core.py's Queue class: draw,
// wait, release, and the bump recovery algorithm.
type Queue struct {
	store        store.Store
	keys         Keys
	subscription store.Subscription
	recorder     Recorder
}

// NewQueue opens a Queue for resource, subscribing to its internal channel
// up front so that a waiter never misses its own grant (spec.md §5
// "Ordering guarantees": "a waiter that subscribes before publishing its
// draw will never miss its own grant").
func NewQueue(ctx context.Context, st store.Store, resource string, opts ...QueueOption) *Queue {
	keys := NewKeys(resource)
	q := &Queue{
		store:        st,
		keys:         keys,
		subscription: st.Subscribe(ctx, keys.Internal),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Close releases the Queue's subscription (spec.md §4.4 "close").
func (q *Queue) Close() error {
	return q.subscription.Close()
}

// Draw atomically initializes the dispenser/indicator pair if absent and
// unconditionally increments the dispenser, returning the issued serial
// (spec.md §4.4 "draw"). It then publishes an assignment trace and starts a
// Keeper advertising presence for the new serial.
//
// The initialization is pipelined as msetnx(dispenser=0, indicator=1) then
// incr(dispenser): at most one caller performs the (no-op-if-raced)
// initialization, and every caller's increment is still atomic, so two
// first-time callers can never both observe serial 1 (spec.md §9
// "Dispenser/indicator initialization race"). An implementation must not
// replace the conditional multi-set with an unconditional one.
func (q *Queue) Draw(ctx context.Context, label string, ttl time.Duration) (serial int64, keeper *Keeper, err error) {
	if q.recorder != nil {
		start := time.Now()
		defer func() { q.recorder.RecordDraw(q.keys.Resource, time.Since(start), err) }()
	}

	if _, err = q.store.MSetNX(ctx, map[string]string{
		q.keys.Dispenser: "0",
		q.keys.Indicator: "1",
	}); err != nil {
		return 0, nil, fmt.Errorf("draw %s: initialize: %w", q.keys.Resource, err)
	}

	serial, err = q.store.Incr(ctx, q.keys.Dispenser)
	if err != nil {
		return 0, nil, fmt.Errorf("draw %s: increment dispenser: %w", q.keys.Resource, err)
	}

	q.message(ctx, fmt.Sprintf("%d assigned to %q", serial, label))

	keeper, err = StartKeeper(ctx, q.store, q.keys.Serial(serial), label, ttl)
	if err != nil {
		return 0, nil, fmt.Errorf("draw %s: start keeper: %w", q.keys.Resource, err)
	}

	slog.Debug("drew serial", "resource", q.keys.Resource, "serial", serial, "label", label)
	return serial, keeper, nil
}

// Wait blocks until the indicator equals serial (spec.md §4.4 "wait"). A
// waiter that goes longer than patience without an announcement bumps the
// queue itself and keeps waiting; this is what recovers from an abandoned
// holder without violating FIFO among live waiters.
func (q *Queue) Wait(ctx context.Context, serial int64, patience time.Duration) (err error) {
	if q.recorder != nil {
		start := time.Now()
		defer func() { q.recorder.RecordWait(q.keys.Resource, time.Since(start), err) }()
	}

	indicatorStr, err := q.store.Get(ctx, q.keys.Indicator)
	if err != nil && err != store.ErrNotFound {
		return fmt.Errorf("wait %s: read indicator: %w", q.keys.Resource, err)
	}
	if err == nil && parseIndicator(indicatorStr) == serial {
		q.message(ctx, fmt.Sprintf("%d started", serial))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ErrCanceled
		default:
		}

		msg, err := q.subscription.Receive(ctx, patience)
		if err != nil {
			if ctx.Err() != nil {
				return ErrCanceled
			}
			return fmt.Errorf("wait %s: receive: %w", q.keys.Resource, err)
		}

		if msg == nil {
			// Timeout beyond patience: bump and try again.
			q.message(ctx, fmt.Sprintf("%d bumps", serial))
			if _, err := q.bump(ctx); err != nil {
				return fmt.Errorf("wait %s: bump: %w", q.keys.Resource, err)
			}
			continue
		}
		if msg.Kind != store.KindMessage {
			continue // subscribe acknowledgment
		}

		granted, err := SerialFromKey(msg.Payload)
		if err != nil {
			slog.Debug("ignoring malformed internal message", "resource", q.keys.Resource, "payload", msg.Payload)
			continue
		}
		if granted == serial {
			q.message(ctx, fmt.Sprintf("%d started", serial))
			return nil
		}
	}
}

// Release is performed by the holder on every exit of the critical section
// (spec.md §4.4 "release"): it stops the Keeper, publishes a completion or
// crash trace, advances the indicator past serial, and announces the new
// indicator value. outcome is the control-flow-free way of selecting the
// trace message, per spec.md §9's note that this is "the normal release
// path parameterized by an outcome flag..., not exception-name matching".
func (q *Queue) Release(ctx context.Context, serial int64, label string, keeper *Keeper, outcome Outcome) error {
	keeper.Close()
	if q.recorder != nil {
		q.recorder.RecordRelease(q.keys.Resource, outcome)
	}

	switch outcome {
	case OutcomeCrashed:
		q.message(ctx, fmt.Sprintf("%d crashed!", serial))
	default:
		q.message(ctx, fmt.Sprintf("%d completed by %q", serial, label))
	}

	next := serial + 1
	if err := q.store.SetTTL(ctx, q.keys.Indicator, strconv.FormatInt(next, 10), 0); err != nil {
		return fmt.Errorf("release %s: advance indicator: %w", q.keys.Resource, err)
	}
	return q.announce(ctx, next)
}

// message publishes a human-readable trace on the external channel
// (spec.md §6.3).
func (q *Queue) message(ctx context.Context, body string) {
	if err := q.store.Publish(ctx, q.keys.External, fmt.Sprintf("%s: %s", q.keys.Resource, body)); err != nil {
		slog.Warn("failed to publish trace", "resource", q.keys.Resource, "error", err)
	}
}

// announce publishes an indicator change on both channels (spec.md §4.4).
func (q *Queue) announce(ctx context.Context, serial int64) error {
	if err := q.store.Publish(ctx, q.keys.Internal, q.keys.Serial(serial)); err != nil {
		return fmt.Errorf("announce %s: %w", q.keys.Resource, err)
	}
	q.message(ctx, fmt.Sprintf("%d granted", serial))
	return nil
}

// Bump is the public entry point for the bump recovery algorithm, used by
// the reset tool (spec.md §4.6 "reset").
func (q *Queue) Bump(ctx context.Context) (int64, error) {
	return q.bump(ctx)
}

// Notify publishes a custom trace message on the resource's external
// channel, for tools that want to explain an action before taking it
// (turn/tools.py's reset calling queue.message directly ahead of a bump).
func (q *Queue) Notify(ctx context.Context, body string) {
	q.message(ctx, body)
}

// bump fixes the indicator in the presence of abandoned holders (spec.md
// §4.4 "bump"), grounded on turn/core.py's Queue.bump: read the outstanding
// range [indicator, dispenser], find the smallest serial with live
// presence, and move the indicator there (or past the dispenser if none are
// live). It always announces, even when the indicator was already correct,
// serving as a heartbeat for pathological waiters.
func (q *Queue) bump(ctx context.Context) (int64, error) {
	if q.recorder != nil {
		q.recorder.RecordBump(q.keys.Resource)
	}

	values, err := q.store.MGet(ctx, q.keys.Indicator, q.keys.Dispenser)
	if err != nil {
		return 0, fmt.Errorf("bump %s: read indicator/dispenser: %w", q.keys.Resource, err)
	}
	indicator := parseIndicatorPtr(values[0], 1)
	dispenser := parseIndicatorPtr(values[1], 0)

	n := dispenser + 1
	if dispenser >= indicator {
		serials := make([]string, 0, dispenser-indicator+1)
		for s := indicator; s <= dispenser; s++ {
			serials = append(serials, q.keys.Serial(s))
		}
		presence, err := q.store.MGet(ctx, serials...)
		if err != nil {
			return 0, fmt.Errorf("bump %s: read presence: %w", q.keys.Resource, err)
		}
		for i, p := range presence {
			if p != nil {
				n = indicator + int64(i)
				break
			}
		}
	}

	if n != indicator {
		if err := q.store.SetTTL(ctx, q.keys.Indicator, strconv.FormatInt(n, 10), 0); err != nil {
			return 0, fmt.Errorf("bump %s: write indicator: %w", q.keys.Resource, err)
		}
	}

	if err := q.announce(ctx, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Indicator reads the current indicator value, or (0, false) if the
// resource has never been used (spec.md §3 invariant 2).
func (q *Queue) Indicator(ctx context.Context) (int64, bool, error) {
	v, err := q.store.Get(ctx, q.keys.Indicator)
	if err == store.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read indicator %s: %w", q.keys.Resource, err)
	}
	return parseIndicator(v), true, nil
}

// Dispenser reads the current dispenser value, or (0, false) if the
// resource has never been used.
func (q *Queue) Dispenser(ctx context.Context) (int64, bool, error) {
	v, err := q.store.Get(ctx, q.keys.Dispenser)
	if err == store.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read dispenser %s: %w", q.keys.Resource, err)
	}
	return parseIndicator(v), true, nil
}

// Keys exposes the resource's key names, for tools that need to scan or
// read them directly (status, reset, find-resources).
func (q *Queue) Keys() Keys {
	return q.keys
}

func parseIndicator(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseIndicatorPtr(s *string, fallback int64) int64 {
	if s == nil {
		return fallback
	}
	return parseIndicator(*s)
}
