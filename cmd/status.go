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
	"os/signal"
	"syscall"

	"github.com/fieldnotes-dev/turnqueue/internal/tools"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [resource ...]",
		Short: "Print a queue summary for all existing resources, or detail for the named ones",
		RunE:  runStatus,
	}
}

// runStatus installs a signal-derived context like every other subcommand
// (spec.md §6.4), so a SIGINT during a slow store round-trip still exits
// zero instead of falling through to the OS default disposition.
func runStatus(cmd *cobra.Command, resources []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	st, _, cleanup, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tools.Status(ctx, st, resources, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("cmd: status: %w", err)
	}
	return nil
}
