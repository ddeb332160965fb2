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

import "time"

// Recorder receives timing and outcome events for a Queue's operations.
// internal/metrics implements this against Prometheus; turn itself stays
// free of any metrics dependency so it can be used (and tested) without one.
type Recorder interface {
	RecordDraw(resource string, duration time.Duration, err error)
	RecordWait(resource string, duration time.Duration, err error)
	RecordRelease(resource string, outcome Outcome)
	RecordBump(resource string)
}

// QueueOption configures optional Queue behavior.
type QueueOption func(*Queue)

// WithRecorder attaches a Recorder that observes every Draw/Wait/Release/bump
// on the Queue (SPEC_FULL.md's metrics addition).
func WithRecorder(r Recorder) QueueOption {
	return func(q *Queue) { q.recorder = r }
}
