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

package store

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// NewMemory returns an in-process Store for unit tests, grounded on
// internal/pubsub/memory.go and internal/kv/memory.go's in-memory
// fallback, but with real semantics rather than no-ops since the turn
// package's tests assert on draw/wait/bump behavior.
func NewMemory() Store {
	return &memoryStore{
		values:      map[string]string{},
		expireAt:    map[string]time.Time{},
		versions:    map[string]int64{},
		subscribers: map[string][]*memorySubscription{},
	}
}

type memoryStore struct {
	mu          sync.Mutex
	values      map[string]string
	expireAt    map[string]time.Time
	versions    map[string]int64
	subscribers map[string][]*memorySubscription
	watchHook   func()
}

// WatchDeleteHook installs fn to run, unlocked, in the window WatchDelete's
// real-Redis counterpart leaves open between its WATCH and its EXEC — after
// the watched key's version is captured but before the guarded delete
// commits. Tests use it to inject a concurrent mutation deterministically
// instead of racing on a sleep. A no-op for any Store that is not the
// in-memory implementation.
func WatchDeleteHook(st Store, fn func()) {
	m, ok := st.(*memoryStore)
	if !ok {
		return
	}
	m.mu.Lock()
	m.watchHook = fn
	m.mu.Unlock()
}

func (s *memoryStore) expireLocked(key string) {
	if at, ok := s.expireAt[key]; ok && time.Now().After(at) {
		delete(s.values, key)
		delete(s.expireAt, key)
		s.versions[key]++
	}
}

func (s *memoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	n := int64(0)
	if v, ok := s.values[key]; ok {
		n, _ = strconv.ParseInt(v, 10, 64)
	}
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	s.versions[key]++
	return n, nil
}

func (s *memoryStore) MSetNX(_ context.Context, values map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range values {
		s.expireLocked(k)
		if _, ok := s.values[k]; ok {
			return false, nil
		}
	}
	for k, v := range values {
		s.values[k] = v
		s.versions[k]++
	}
	return true, nil
}

func (s *memoryStore) MGet(_ context.Context, keys ...string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		s.expireLocked(k)
		if v, ok := s.values[k]; ok {
			val := v
			out[i] = &val
		}
	}
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.versions[key]++
	if ttl <= 0 {
		delete(s.expireAt, key)
		return nil
	}
	s.expireAt[key] = time.Now().Add(ttl)
	return nil
}

func (s *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	if _, ok := s.values[key]; !ok {
		return nil
	}
	s.expireAt[key] = time.Now().Add(ttl)
	s.versions[key]++
	return nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
		delete(s.expireAt, k)
		s.versions[k]++
	}
	return nil
}

func (s *memoryStore) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.values {
		s.expireLocked(k)
		if _, ok := s.values[k]; !ok {
			continue
		}
		if ok, _ := filepath.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memoryStore) Publish(_ context.Context, channel, payload string) error {
	s.mu.Lock()
	subs := append([]*memorySubscription(nil), s.subscribers[channel]...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(Message{Kind: KindMessage, Channel: channel, Payload: payload})
	}
	return nil
}

func (s *memoryStore) Subscribe(_ context.Context, channels ...string) Subscription {
	sub := &memorySubscription{
		store:    s,
		channels: channels,
		ch:       make(chan Message, 64),
	}
	s.mu.Lock()
	for _, c := range channels {
		s.subscribers[c] = append(s.subscribers[c], sub)
	}
	s.mu.Unlock()
	return sub
}

// WatchDelete mirrors redis.go's client.Watch+TxPipelined: it snapshots
// watch's version, gives any concurrent mutation a chance to land (real
// Redis's equivalent window is the round-trip between WATCH and EXEC), then
// only commits the delete if the version is unchanged, reporting
// ErrWatchConflict otherwise.
func (s *memoryStore) WatchDelete(_ context.Context, watch string, targets ...string) error {
	s.mu.Lock()
	s.expireLocked(watch)
	version := s.versions[watch]
	hook := s.watchHook
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[watch] != version {
		return ErrWatchConflict
	}
	for _, k := range targets {
		delete(s.values, k)
		delete(s.expireAt, k)
		s.versions[k]++
	}
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) unsubscribe(sub *memorySubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range sub.channels {
		subs := s.subscribers[c]
		for i, cand := range subs {
			if cand == sub {
				s.subscribers[c] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

type memorySubscription struct {
	store    *memoryStore
	channels []string
	ch       chan Message
	closeMu  sync.Mutex
	closed   bool
}

func (s *memorySubscription) deliver(msg Message) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (s *memorySubscription) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	if timeout <= 0 {
		select {
		case msg, ok := <-s.ch:
			if !ok {
				return nil, nil
			}
			return &msg, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, nil
		}
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.store.unsubscribe(s)
	close(s.ch)
	return nil
}
