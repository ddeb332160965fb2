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

//go:build integration

// Package testutils provides the Redis container bootstrap used by
// integration tests that need a real backing store rather than
// store.NewMemory.
package testutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

var (
	client    store.Store
	container *dockertest.Resource
)

// CreateRedis starts (or reuses) a redis:7-alpine dockertest container and
// returns a Store connected to it. Grounded on
// internal/testutils/docker.go's CreateRedis, trimmed of the gorm/sqlite
// database bootstrap turnqueue has no use for, and adapted to hand back a
// store.Store (via store.NewRedis) instead of a bare *redis.Client.
func CreateRedis() (store.Store, error) {
	if client != nil {
		return client, nil
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("testutils: construct docker pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("testutils: connect to docker: %w", err)
	}

	container, err = pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
		Cmd:        []string{"--requirepass", "password"},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"6379/tcp": {{HostIP: "127.0.0.1", HostPort: "0"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("testutils: start redis container: %w", err)
	}

	cfg := config.Redis{
		Host:     "127.0.0.1",
		Port:     mustAtoi(container.GetPort("6379/tcp")),
		Password: "password",
	}

	var st store.Store
	err = pool.Retry(func() error {
		var dialErr error
		st, dialErr = store.NewRedis(context.Background(), cfg)
		return dialErr
	})
	if err != nil {
		if purgeErr := pool.Purge(container); purgeErr != nil {
			slog.Error("testutils: purge redis container after dial failure", "error", purgeErr)
		}
		return nil, fmt.Errorf("testutils: connect to redis: %w", err)
	}

	client = st
	return client, nil
}

// CloseRedis closes the client and tears down the container, for use in a
// TestMain or package-level cleanup.
func CloseRedis() {
	if client != nil {
		if err := client.Close(); err != nil {
			slog.Error("testutils: close redis client", "error", err)
		}
		client = nil
	}
	if container != nil {
		if err := container.Close(); err != nil {
			slog.Error("testutils: close redis container", "error", err)
		}
		container = nil
	}
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
