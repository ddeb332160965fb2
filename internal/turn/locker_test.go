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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFakeDialer swaps newStore for the duration of a test so that Hold
// never touches a real Redis, and returns how many times a distinct
// connection was actually dialed.
func withFakeDialer(t *testing.T) *int32 {
	t.Helper()
	var dials int32
	byConfig := map[config.Redis]store.Store{}

	orig := newStore
	newStore = func(_ context.Context, cfg config.Redis) (store.Store, error) {
		atomic.AddInt32(&dials, 1)
		if st, ok := byConfig[cfg]; ok {
			return st, nil
		}
		st := store.NewMemory()
		byConfig[cfg] = st
		return st, nil
	}
	t.Cleanup(func() {
		newStore = orig
		clientsMu.Lock()
		clients = map[config.Redis]store.Store{}
		clientsMu.Unlock()
	})
	return &dials
}

func TestHoldRunsCriticalSectionExactlyOnce(t *testing.T) {
	withFakeDialer(t)
	l := NewLocker("r1", "worker", time.Second, 200*time.Millisecond)

	var ran int
	err := l.Hold(context.Background(), config.Redis{Host: "a"}, func(ctx context.Context) error {
		ran++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestHoldPropagatesCriticalSectionError(t *testing.T) {
	withFakeDialer(t)
	l := NewLocker("r1", "worker", time.Second, 200*time.Millisecond)

	sentinel := errors.New("boom")
	err := l.Hold(context.Background(), config.Redis{Host: "a"}, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestHoldRecoversAndRepanicsAfterReleasing(t *testing.T) {
	withFakeDialer(t)
	l := NewLocker("r1", "worker", time.Second, 200*time.Millisecond)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Equal(t, "kaboom", r)
	}()
	_ = l.Hold(context.Background(), config.Redis{Host: "a"}, func(ctx context.Context) error {
		panic("kaboom")
	})
	t.Fatal("Hold should have repanicked")
}

func TestHoldReleasesAfterPanicSoNextAcquireSucceeds(t *testing.T) {
	withFakeDialer(t)
	l := NewLocker("r1", "worker", time.Second, 200*time.Millisecond)

	func() {
		defer func() { recover() }()
		_ = l.Hold(context.Background(), config.Redis{Host: "a"}, func(ctx context.Context) error {
			panic("kaboom")
		})
	}()

	var ran bool
	err := l.Hold(context.Background(), config.Redis{Host: "a"}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran, "a second Hold after a panicking first one must still be grantable")
}

func TestHoldSerializesTwoWaitersOnSameResource(t *testing.T) {
	withFakeDialer(t)
	l := NewLocker("r1", "worker", 500*time.Millisecond, 100*time.Millisecond)
	cfg := config.Redis{Host: "a"}

	inside := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = l.Hold(context.Background(), cfg, func(ctx context.Context) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	secondStarted := make(chan struct{})
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_ = l.Hold(context.Background(), cfg, func(ctx context.Context) error {
			close(secondStarted)
			return nil
		})
	}()

	select {
	case <-secondStarted:
		t.Fatal("second Hold ran while the first still held the resource")
	case <-time.After(150 * time.Millisecond):
	}

	close(release)
	<-firstDone

	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		t.Fatal("second Hold never ran after the first released")
	}
}

func TestClientForMemoizesByConnectionParameters(t *testing.T) {
	dials := withFakeDialer(t)
	cfg := config.Redis{Host: "shared", Port: 6379}

	st1, err := clientFor(context.Background(), cfg)
	require.NoError(t, err)
	st2, err := clientFor(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, st1, st2)
	assert.Equal(t, int32(1), atomic.LoadInt32(dials))

	other := cfg
	other.Host = "different"
	st3, err := clientFor(context.Background(), other)
	require.NoError(t, err)
	assert.NotSame(t, st1, st3)
	assert.Equal(t, int32(2), atomic.LoadInt32(dials))
}

func TestShutdownAllClosesAndClearsMemoizedClients(t *testing.T) {
	withFakeDialer(t)
	_, err := clientFor(context.Background(), config.Redis{Host: "a"})
	require.NoError(t, err)
	_, err = clientFor(context.Background(), config.Redis{Host: "b"})
	require.NoError(t, err)

	require.NoError(t, shutdownAll())

	clientsMu.Lock()
	n := len(clients)
	clientsMu.Unlock()
	assert.Zero(t, n)
}
