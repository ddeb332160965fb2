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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/tools"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
	"github.com/spf13/cobra"
)

// defaultTTL and defaultPatience match turn/core.py's Locker.lock defaults
// (expire=60, patience=60).
const (
	defaultTTL      = 60 * time.Second
	defaultPatience = 60 * time.Second
)

func newLockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock [resource ...]",
		Short: "Lock all existing resources, or the named ones, until interrupted",
		RunE:  runLock,
	}
	cmd.Flags().String("label", "", "label recorded against the hold (default: hostname)")
	cmd.Flags().Duration("ttl", defaultTTL, "presence TTL; a holder silent this long is judged dead")
	cmd.Flags().Duration("patience", defaultPatience, "how long Wait tolerates silence before bumping")
	return cmd
}

func runLock(cmd *cobra.Command, resources []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	label, err := cmd.Flags().GetString("label")
	if err != nil {
		return err
	}
	if label == "" {
		label, err = os.Hostname()
		if err != nil {
			label = "turnqueue-lock"
		}
	}
	ttl, err := cmd.Flags().GetDuration("ttl")
	if err != nil {
		return err
	}
	patience, err := cmd.Flags().GetDuration("patience")
	if err != nil {
		return err
	}

	st, recorder, cleanup, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tools.LockHold(ctx, st, resources, label, ttl, patience, cmd.OutOrStdout(), turn.WithRecorder(recorder))
	if err != nil {
		return fmt.Errorf("cmd: lock: %w", err)
	}
	return nil
}
