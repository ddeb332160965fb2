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

package turn_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	draws, waits, bumps int
	releases            []turn.Outcome
}

func (f *fakeRecorder) RecordDraw(string, time.Duration, error)    { f.draws++ }
func (f *fakeRecorder) RecordWait(string, time.Duration, error)    { f.waits++ }
func (f *fakeRecorder) RecordRelease(_ string, outcome turn.Outcome) { f.releases = append(f.releases, outcome) }
func (f *fakeRecorder) RecordBump(string)                          { f.bumps++ }

func TestQueueRecordsEveryOperation(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	rec := &fakeRecorder{}

	q := turn.NewQueue(ctx, st, "r1", turn.WithRecorder(rec))
	defer q.Close()

	serial, keeper, err := q.Draw(ctx, "worker", time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Wait(ctx, serial, time.Second))
	require.NoError(t, q.Release(ctx, serial, "worker", keeper, turn.OutcomeNormal))

	_, err = q.Bump(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.draws)
	assert.Equal(t, 1, rec.waits)
	assert.Equal(t, []turn.Outcome{turn.OutcomeNormal}, rec.releases)
	assert.Equal(t, 1, rec.bumps)
}

func TestQueueWithoutRecorderDoesNotPanic(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	q := turn.NewQueue(ctx, st, "r1")
	defer q.Close()

	serial, keeper, err := q.Draw(ctx, "worker", time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Wait(ctx, serial, time.Second))
	require.NoError(t, q.Release(ctx, serial, "worker", keeper, turn.OutcomeNormal))
}
