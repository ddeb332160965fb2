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

package tools

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fieldnotes-dev/turnqueue/internal/store"
	"github.com/fieldnotes-dev/turnqueue/internal/turn"
)

// Follow subscribes to the external (human-readable) channel of resources —
// or every discoverable resource if none are named — and writes every
// published trace line to out until ctx is canceled, grounded on
// turn/tools.py's follow.
func Follow(ctx context.Context, st store.Store, resources []string, out io.Writer) error {
	resources, err := resolveResources(ctx, st, resources)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return nil
	}

	channels := make([]string, len(resources))
	for i, resource := range resources {
		channels[i] = turn.NewKeys(resource).External
	}

	sub := st.Subscribe(ctx, channels...)
	defer sub.Close()

	for {
		msg, err := sub.Receive(ctx, 0)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tools: follow: %w", err)
		}
		if msg == nil || msg.Kind != store.KindMessage {
			continue
		}
		fmt.Fprintln(out, msg.Payload)
	}
}
