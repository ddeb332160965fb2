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

package config

// LogLevel selects the minimum slog level emitted by the CLI.
type LogLevel string

const (
	// LogLevelDebug emits debug and above.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo emits info and above.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn emits warn and above.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError emits only errors.
	LogLevelError LogLevel = "error"
)
