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

import "errors"

// ErrCanceled is returned by Wait and Hold when the caller's context is
// canceled while waiting, per spec.md §5 "Cancellation": it must propagate
// as a caller-visible error and still run the release path.
var ErrCanceled = errors.New("turn: wait canceled")

// Outcome parameterizes Release's trace message and is how a caller
// reports whether its critical section succeeded, matching spec.md §9's
// note that the "crashed" publish is "the normal release path
// parameterized by an outcome flag..., not exception-name matching".
type Outcome int

const (
	// OutcomeNormal is a successful completion of the critical section.
	OutcomeNormal Outcome = iota
	// OutcomeCrashed is an exceptional exit from the critical section.
	OutcomeCrashed
)
