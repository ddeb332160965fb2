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

package config_test

import (
	"errors"
	"testing"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Load()
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, config.LogLevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0", cfg.Metrics.Bind)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadMetricsFromEnv(t *testing.T) {
	t.Setenv("TURNQUEUE_METRICS_ENABLED", "true")
	t.Setenv("TURNQUEUE_METRICS_BIND", "127.0.0.1")
	t.Setenv("TURNQUEUE_METRICS_PORT", "9100")

	cfg := config.Load()
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Metrics.Bind)
	assert.Equal(t, 9100, cfg.Metrics.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TURNQUEUE_REDIS_HOST", "redis.internal")
	t.Setenv("TURNQUEUE_REDIS_PORT", "6380")
	t.Setenv("TURNQUEUE_REDIS_DB", "3")
	t.Setenv("TURNQUEUE_LOG_LEVEL", "debug")

	cfg := config.Load()
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
}

func TestLoadIgnoresMalformedPort(t *testing.T) {
	t.Setenv("TURNQUEUE_REDIS_PORT", "not-a-port")
	cfg := config.Load()
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestRedisValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		redis   config.Redis
		wantErr error
	}{
		{"valid", config.Redis{Host: "localhost", Port: 6379}, nil},
		{"empty host", config.Redis{Host: "", Port: 6379}, config.ErrInvalidRedisHost},
		{"zero port", config.Redis{Host: "localhost", Port: 0}, config.ErrInvalidRedisPort},
		{"negative port", config.Redis{Host: "localhost", Port: -1}, config.ErrInvalidRedisPort},
		{"port too large", config.Redis{Host: "localhost", Port: 70000}, config.ErrInvalidRedisPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.redis.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestConfigValidateRejectsBadLogLevel(t *testing.T) {
	t.Parallel()
	cfg := config.Config{Redis: config.Redis{Host: "localhost", Port: 6379}, LogLevel: "verbose"}
	assert.True(t, errors.Is(cfg.Validate(), config.ErrInvalidLogLevel))
}

func TestConfigValidateOK(t *testing.T) {
	t.Parallel()
	cfg := config.Config{Redis: config.Redis{Host: "localhost", Port: 6379}, LogLevel: config.LogLevelInfo}
	assert.NoError(t, cfg.Validate())
}

func TestMetricsValidateIgnoresPortWhenDisabled(t *testing.T) {
	t.Parallel()
	assert.NoError(t, config.Metrics{Enabled: false, Port: -1}.Validate())
}

func TestMetricsValidateRejectsBadPortWhenEnabled(t *testing.T) {
	t.Parallel()
	err := config.Metrics{Enabled: true, Port: 0}.Validate()
	assert.True(t, errors.Is(err, config.ErrInvalidMetricsPort))
}
