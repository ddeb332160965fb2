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

package tools_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/tools"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportSeparator mirrors tools.go's unexported 60-dash separator line.
var reportSeparator = strings.Repeat("-", 60)

func drawWaitRelease(t *testing.T, st store.Store, resource, label string) {
	t.Helper()
	ctx := context.Background()
	q := turn.NewQueue(ctx, st, resource)
	defer q.Close()
	serial, keeper, err := q.Draw(ctx, label, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Wait(ctx, serial, time.Second))
	require.NoError(t, q.Release(ctx, serial, label, keeper, turn.OutcomeNormal))
}

func TestFindResourcesDiscoversDispensers(t *testing.T) {
	st := store.NewMemory()
	drawWaitRelease(t, st, "alpha", "a")
	drawWaitRelease(t, st, "beta", "b")

	found, err := tools.FindResources(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, found)
}

func TestFollowPrintsExternalTraceUntilCanceled(t *testing.T) {
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- tools.Follow(ctx, st, []string{"r1"}, &out)
	}()

	// Give Follow a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	drawWaitRelease(t, st, "r1", "worker")
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	require.NoError(t, err)
	assert.Contains(t, out.String(), `r1: 1 assigned to "worker"`)
	assert.Contains(t, out.String(), "r1: 1 started")
	assert.Contains(t, out.String(), `r1: 1 completed by "worker"`)
	assert.Contains(t, out.String(), "r1: 2 granted")
}

func TestResetReportsNoSuchQueue(t *testing.T) {
	st := store.NewMemory()
	var out bytes.Buffer
	require.NoError(t, tools.Reset(context.Background(), st, []string{"ghost"}, &out))
	assert.Contains(t, out.String(), `No such queue: "ghost"`)
}

func TestResetReportsInUse(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	q := turn.NewQueue(ctx, st, "busy")
	defer q.Close()
	_, keeper, err := q.Draw(ctx, "holder", time.Second)
	require.NoError(t, err)
	defer keeper.Close()
	require.NoError(t, q.Wait(ctx, 1, time.Second))

	var out bytes.Buffer
	require.NoError(t, tools.Reset(ctx, st, []string{"busy"}, &out))
	assert.Contains(t, out.String(), `"busy" is in use by 1 user(s)`)
}

func TestResetDeletesIdleQueue(t *testing.T) {
	st := store.NewMemory()
	drawWaitRelease(t, st, "idle", "worker")

	var out bytes.Buffer
	require.NoError(t, tools.Reset(context.Background(), st, []string{"idle"}, &out))
	assert.Empty(t, out.String())

	keys := turn.NewKeys("idle")
	_, err := st.Get(context.Background(), keys.Dispenser)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(context.Background(), keys.Indicator)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestResetDetectsActivityDuringDelete covers spec.md §8's "Reset race"
// scenario: a drawer lands between reset's idle check and its watch-guarded
// delete, so the delete must abort and reset must report "activity
// detected" instead of silently dropping a dispenser someone just reused.
func TestResetDetectsActivityDuringDelete(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	drawWaitRelease(t, st, "racy", "worker")

	store.WatchDeleteHook(st, func() {
		q := turn.NewQueue(ctx, st, "racy")
		defer q.Close()
		_, keeper, err := q.Draw(ctx, "latecomer", time.Second)
		require.NoError(t, err)
		keeper.Close()
	})

	var out bytes.Buffer
	require.NoError(t, tools.Reset(ctx, st, []string{"racy"}, &out))
	assert.Contains(t, out.String(), `Activity detected for "racy"`)

	// The racing draw's dispenser/indicator must survive: reset backed off
	// rather than deleting state a live drawer now depends on.
	keys := turn.NewKeys("racy")
	_, err := st.Get(ctx, keys.Dispenser)
	assert.NoError(t, err)
}

func TestResetReportMatchesExactLayoutAcrossResources(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	drawWaitRelease(t, st, "idle", "worker")

	q := turn.NewQueue(ctx, st, "busy")
	defer q.Close()
	_, keeper, err := q.Draw(ctx, "holder", time.Second)
	require.NoError(t, err)
	defer keeper.Close()
	require.NoError(t, q.Wait(ctx, 1, time.Second))

	var out bytes.Buffer
	require.NoError(t, tools.Reset(ctx, st, []string{"ghost", "busy", "idle"}, &out))

	// "ghost" has no history, "busy" has a live holder, "idle" is silently
	// deleted — resetOne prints nothing per resource except those two lines.
	want := fmt.Sprintf("No such queue: %q.\n%q is in use by %d user(s).\n", "ghost", "busy", 1)
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("reset report mismatch (-want +got):\n%s", diff)
	}
}

func TestResetBumpsAbandonedHolderThenDeletes(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	q := turn.NewQueue(ctx, st, "abandoned")
	_, keeper, err := q.Draw(ctx, "dead", time.Second)
	require.NoError(t, err)
	keeper.Close() // presence gone; dispenser/indicator remain
	require.NoError(t, q.Close())

	var out bytes.Buffer
	require.NoError(t, tools.Reset(ctx, st, []string{"abandoned"}, &out))
	assert.Empty(t, out.String())

	keys := turn.NewKeys("abandoned")
	_, err = st.Get(ctx, keys.Dispenser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatusPrintsResourceDetail(t *testing.T) {
	st := store.NewMemory()
	drawWaitRelease(t, st, "r1", "alice")

	ctx := context.Background()
	q := turn.NewQueue(ctx, st, "r1")
	defer q.Close()
	_, keeper, err := q.Draw(ctx, "bob", time.Second)
	require.NoError(t, err)
	defer keeper.Close()

	var out bytes.Buffer
	require.NoError(t, tools.Status(ctx, st, []string{"r1"}, &out))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "r1")
	assert.Contains(t, lines[2], "bob")
}

func TestStatusSummaryReportMatchesExactLayout(t *testing.T) {
	st := store.NewMemory()
	drawWaitRelease(t, st, "alpha", "alice")

	ctx := context.Background()
	q := turn.NewQueue(ctx, st, "beta")
	defer q.Close()
	_, keeper, err := q.Draw(ctx, "bob", time.Second)
	require.NoError(t, err)
	defer keeper.Close()
	require.NoError(t, q.Wait(ctx, 1, time.Second))

	var out bytes.Buffer
	require.NoError(t, tools.Status(ctx, st, nil, &out))

	// beta has an outstanding holder (queue size 1) and sorts before the
	// now-idle alpha (queue size 0), per tools.py's size-then-name ordering.
	want := fmt.Sprintf("%-50s%10s\n%s\n%-50s%10d\n%-50s%10d\n",
		"Resource", "Queue size", reportSeparator,
		"beta", 1,
		"alpha", 0,
	)
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("status summary report mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusSummaryOmitsResourcesWithNoHistory(t *testing.T) {
	st := store.NewMemory()
	drawWaitRelease(t, st, "r1", "alice")
	// "ghost" is discoverable by its dispenser key but has no indicator.
	_, err := st.Incr(context.Background(), turn.NewKeys("ghost").Dispenser)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tools.Status(context.Background(), st, nil, &out))
	assert.Contains(t, out.String(), "r1")
	assert.Contains(t, out.String(), "Queue size")
	assert.NotContains(t, out.String(), "ghost")
}

func TestLockHoldAcquiresAndReleasesOnCancel(t *testing.T) {
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- tools.LockHold(ctx, st, []string{"r1"}, "lock tool", time.Second, 200*time.Millisecond, &out)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("LockHold never returned after cancellation")
	}

	assert.Contains(t, out.String(), "r1: acquiring")
	assert.Contains(t, out.String(), "r1: locked")
	assert.Contains(t, out.String(), "r1: released")
}

func TestLockHoldWithNoResourcesIsNoop(t *testing.T) {
	st := store.NewMemory()
	var out bytes.Buffer
	require.NoError(t, tools.LockHold(context.Background(), st, nil, "lock tool", time.Second, time.Second, &out))
	assert.Empty(t, out.String())
}
