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

package cmd

import (
	"testing"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandRegistersAllFourSubcommands(t *testing.T) {
	t.Parallel()
	root := NewCommand("1.2.3", "abc1234")

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"follow", "lock", "reset", "status"}, names)
	assert.Contains(t, root.Version, "1.2.3")
	assert.Contains(t, root.Version, "abc1234")
}

func TestLoadConfigAppliesFlagOverridesOnTopOfEnvDefaults(t *testing.T) {
	t.Setenv("TURNQUEUE_REDIS_HOST", "env-host")
	t.Setenv("TURNQUEUE_REDIS_PORT", "6400")

	root := NewCommand("dev", "none")
	require.NoError(t, root.PersistentFlags().Set("host", "flag-host"))
	require.NoError(t, root.PersistentFlags().Set("db", "2"))
	require.NoError(t, root.PersistentFlags().Set("log-level", "debug"))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "flag-host", cfg.Redis.Host)
	assert.Equal(t, 6400, cfg.Redis.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
}

func TestLoadConfigRejectsInvalidLogLevel(t *testing.T) {
	root := NewCommand("dev", "none")
	require.NoError(t, root.PersistentFlags().Set("log-level", "verbose"))

	_, err := loadConfig(root)
	assert.Error(t, err)
}

func TestLoadConfigMetricsFlagEnablesExporterWithDefaultPort(t *testing.T) {
	root := NewCommand("dev", "none")
	require.NoError(t, root.PersistentFlags().Set("metrics", "true"))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	require.NoError(t, root.PersistentFlags().Set("metrics-bind", "127.0.0.1"))
	require.NoError(t, root.PersistentFlags().Set("metrics-port", "9200"))
	cfg, err = loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Metrics.Bind)
	assert.Equal(t, 9200, cfg.Metrics.Port)
}
