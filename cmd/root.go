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

// Package cmd wires the turnqueue subcommands (follow, lock, reset,
// status) onto a cobra root command, grounded on cmd/root.go's
// cobra.Command construction and setupLogger convention, scaled down from
// a server daemon to a four-verb CLI matching the original console.py's
// argparse subcommand surface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/fieldnotes-dev/turnqueue/internal/metrics"
	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewCommand builds the turnqueue root command and its subcommands.
func NewCommand(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:     "turnqueue",
		Short:   "A fair, FIFO, mutually exclusive distributed lock service",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	flags := root.PersistentFlags()
	flags.String("host", "", "redis host (default: localhost, or $TURNQUEUE_REDIS_HOST)")
	flags.Int("port", 0, "redis port (default: 6379, or $TURNQUEUE_REDIS_PORT)")
	flags.Int("db", -1, "redis logical database (default: 0, or $TURNQUEUE_REDIS_DB)")
	flags.String("password", "", "redis password ($TURNQUEUE_REDIS_PASSWORD)")
	flags.String("log-level", "", "debug, info, warn, or error (default: info, or $TURNQUEUE_LOG_LEVEL)")
	flags.Bool("metrics", false, "expose a Prometheus /metrics endpoint while the command runs")
	flags.String("metrics-bind", "", "metrics listen address (default: 0.0.0.0)")
	flags.Int("metrics-port", 0, "metrics listen port (default: 9090)")

	root.AddCommand(
		newFollowCommand(),
		newLockCommand(),
		newResetCommand(),
		newStatusCommand(),
	)

	return root
}

// loadConfig merges environment-derived defaults (config.Load) with any
// flags the operator set on cmd or one of its ancestors, then validates
// the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()

	// cmd.Flags() only picks up persistent flags once cobra has parsed a
	// command line, so merge them in for callers that run before that.
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.PersistentFlags())
	flags.AddFlagSet(cmd.InheritedFlags())
	if v, err := flags.GetString("host"); err == nil && v != "" {
		cfg.Redis.Host = v
	}
	if v, err := flags.GetInt("port"); err == nil && v != 0 {
		cfg.Redis.Port = v
	}
	if v, err := flags.GetInt("db"); err == nil && v >= 0 {
		cfg.Redis.DB = v
	}
	if v, err := flags.GetString("password"); err == nil && v != "" {
		cfg.Redis.Password = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = config.LogLevel(v)
	}
	if v, err := flags.GetBool("metrics"); err == nil && v {
		cfg.Metrics.Enabled = true
	}
	if v, err := flags.GetString("metrics-bind"); err == nil && v != "" {
		cfg.Metrics.Bind = v
	}
	if v, err := flags.GetInt("metrics-port"); err == nil && v != 0 {
		cfg.Metrics.Port = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("cmd: invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger configures the default structured logger, grounded on
// cmd/root.go's setupLogger (slog + tint, leveled by config.LogLevel).
func setupLogger(cfg config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// connect dials the backing store for cfg, always wiring a Metrics
// recorder so draw/wait/release/bump counters accumulate regardless of
// whether the /metrics endpoint is exposed, and starts that endpoint when
// cfg.Metrics.Enabled. The returned cleanup closes both.
func connect(ctx context.Context, cfg config.Config) (store.Store, *metrics.Metrics, func(), error) {
	st, err := store.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cmd: connect to redis: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	server, err := metrics.Serve(cfg.Metrics, reg)
	if err != nil {
		_ = st.Close()
		return nil, nil, nil, fmt.Errorf("cmd: start metrics server: %w", err)
	}

	cleanup := func() {
		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				slog.Error("cmd: shut down metrics server", "error", err)
			}
		}
		if err := st.Close(); err != nil {
			slog.Error("cmd: close redis connection", "error", err)
		}
	}
	return st, m, cleanup, nil
}
