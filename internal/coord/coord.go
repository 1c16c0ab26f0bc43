// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package coord

import (
	"context"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/coord/filed"
	"github.com/staranto/runcachego/internal/coord/memory"
	"github.com/staranto/runcachego/internal/coord/remote"
)

// Coordinator provides both halves of worker coordination, the distributed
// slot and the named lock manager.
type Coordinator interface {
	cache.Slot
	cache.Locker
}

// New picks a coordinator for the current invocation. A coordinator URL wins,
// then a run id selects the file-based coordinator, and a bare invocation
// falls back to in-process coordination.
func New(ctx context.Context, cmd *cli.Command) (Coordinator, error) {
	if url := strings.TrimSpace(cmd.String("coord")); url != "" {
		log.Debugf("using remote coordinator at %s", url)
		return remote.NewCoordinator(ctx, url,
			remote.WithToken(cmd.String("token")),
		)
	}

	if runID := os.Getenv("RUNCACHE_RUN_ID"); runID != "" {
		log.Debugf("using filed coordinator for run %s", runID)
		return filed.NewCoordinator(filed.FromRunID(runID))
	}

	log.Debug("no coordinator configured, using in-process slot and locks")
	return memory.NewCoordinator(), nil
}
