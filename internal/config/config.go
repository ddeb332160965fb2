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

// Package config holds the connection and logging configuration shared by
// every turnqueue subcommand.
package config

import (
	"os"
	"strconv"
)

// Redis holds the connection parameters for the backing store.
type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Metrics holds the Prometheus exporter's bind parameters. Disabled by
// default; the CLI's --metrics flag enables it, with --metrics-bind and
// --metrics-port overriding the listen address.
type Metrics struct {
	Enabled bool
	Bind    string
	Port    int
}

// Config is the configuration shared by every turnqueue subcommand.
type Config struct {
	Redis    Redis
	Metrics  Metrics
	LogLevel LogLevel
}

// Load builds a Config from environment variables, applying the same
// defaults as the original turn CLI (--host localhost --port 6379 --db 0).
// Callers (cmd/) override individual fields with flag values afterwards.
func Load() Config {
	cfg := Config{
		Redis: Redis{
			Host:     getEnv("TURNQUEUE_REDIS_HOST", "localhost"),
			Port:     getEnvInt("TURNQUEUE_REDIS_PORT", 6379),
			Password: getEnv("TURNQUEUE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TURNQUEUE_REDIS_DB", 0),
		},
		Metrics: Metrics{
			Enabled: getEnvBool("TURNQUEUE_METRICS_ENABLED", false),
			Bind:    getEnv("TURNQUEUE_METRICS_BIND", "0.0.0.0"),
			Port:    getEnvInt("TURNQUEUE_METRICS_PORT", 9090),
		},
		LogLevel: LogLevel(getEnv("TURNQUEUE_LOG_LEVEL", string(LogLevelInfo))),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
