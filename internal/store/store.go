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

// Package store defines the backing-store capabilities the turn package
// needs (spec.md §6.2): atomic increment, conditional multi-set, multi-get,
// TTL'd keys, scanning, pub/sub, and an optimistic-concurrency transaction.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a Get found no value for the key.
var ErrNotFound = errors.New("store: key not found")

// ErrWatchConflict indicates a WatchDelete transaction aborted because a
// watched key changed between the watch and the commit.
var ErrWatchConflict = errors.New("store: watched key changed")

// Store is the set of backing-store operations the turn and tools packages
// require. A concrete implementation must provide single-key-write atomicity
// and a multi-get snapshot that is "consistent enough" per spec.md §5.
type Store interface {
	// Incr atomically increments key by one and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// MSetNX sets all of values only if none of the keys already exist.
	// Reports whether the set was actually performed.
	MSetNX(ctx context.Context, values map[string]string) (bool, error)

	// MGet returns the string value for each key, or nil for keys with no
	// value. The returned slice has the same length and order as keys.
	MGet(ctx context.Context, keys ...string) ([]*string, error)

	// Get returns the value at key, or ErrNotFound if absent.
	Get(ctx context.Context, key string) (string, error)

	// SetTTL sets key=value with the given expiry.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Expire refreshes the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Del deletes zero or more keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Scan returns all keys matching the given glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Publish publishes payload on the named channel.
	Publish(ctx context.Context, channel, payload string) error

	// Subscribe opens a Subscription to one or more channels.
	Subscribe(ctx context.Context, channels ...string) Subscription

	// WatchDelete deletes targets iff watch has not changed since the watch
	// began, implementing spec.md §4.6 reset's optimistic-concurrency guard.
	// Returns ErrWatchConflict if watch changed concurrently.
	WatchDelete(ctx context.Context, watch string, targets ...string) error

	// Close releases the underlying connection.
	Close() error
}

// Message is one item received from a Subscription.
type Message struct {
	// Kind distinguishes a real payload from a subscribe acknowledgment.
	Kind    MessageKind
	Channel string
	Payload string
}

// MessageKind distinguishes subscription event types, mirroring the
// distinction spec.md §4.4 draws between redis-py's "message" and
// "subscribe" pubsub event types.
type MessageKind int

const (
	// KindSubscribeAck is the ack delivered when a subscription is
	// established; it carries no payload and must be ignored (spec §4.4).
	KindSubscribeAck MessageKind = iota
	// KindMessage carries an actual published payload.
	KindMessage
)

// Subscription is a live subscription to one or more channels.
type Subscription interface {
	// Receive blocks until a message arrives or timeout elapses. A
	// zero/negative timeout blocks indefinitely. Returns (nil, nil) on
	// timeout — the sentinel spec.md §4.2 calls for.
	Receive(ctx context.Context, timeout time.Duration) (*Message, error)

	// Close unsubscribes and releases resources.
	Close() error
}
