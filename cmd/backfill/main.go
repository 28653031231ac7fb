// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Kalliope Sync — Historical Backfill Command
//
// Standalone CLI tool that ingests historical postal items from the
// registry within a configurable lookback window, wider than the
// scheduled jobs ever request. Intended for seeding data on new
// deployments or repairing gaps after an outage. Ingestion is
// idempotent, so re-running over an already-synced window is safe.
//
// Usage:
//
//	go run ./cmd/backfill/ [--since 720h] [--dossier-types a,b]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lblod/kalliope-sync/internal/config"
	"github.com/lblod/kalliope-sync/internal/files"
	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
	"github.com/lblod/kalliope-sync/internal/sync"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	sinceFlag := flag.String("since", "720h", "Lookback duration (e.g. 168h for 1 week, 720h for 30 days)")
	dossierTypesFlag := flag.String("dossier-types", "", "Comma-separated dossier types to fetch (optional; empty = all)")
	flag.Parse()

	sinceDuration, err := time.ParseDuration(*sinceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --since duration %q: %v\n", *sinceFlag, err)
		os.Exit(1)
	}

	var dossierTypes []string
	for _, t := range strings.Split(*dossierTypesFlag, ",") {
		if t = strings.TrimSpace(t); t != "" {
			dossierTypes = append(dossierTypes, t)
		}
	}

	slog.Info("starting historical backfill",
		"since", sinceDuration,
		"dossier_types", dossierTypes,
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Triple Store ---
	graphStore := store.New(store.NewClient(cfg.SparqlQueryEndpoint, cfg.SparqlUpdateEndpoint))
	if err := graphStore.Ping(ctx); err != nil {
		slog.Error("failed to reach triple store", "error", err)
		os.Exit(1)
	}

	// --- Registry Client ---
	kalliope := registry.NewClient(registry.Config{
		Username:             cfg.RegistryUsername,
		Password:             cfg.RegistryPassword,
		MessagesOutEndpoint:  cfg.MessagesOutEndpoint,
		MessagesInEndpoint:   cfg.MessagesInEndpoint,
		ConfirmationEndpoint: cfg.ConfirmationEndpoint,
		SubmissionEndpoint:   cfg.SubmissionEndpoint,
	})

	// --- Attachment Storage ---
	attachmentDir, err := files.NewDir(cfg.AttachmentsFolderPath)
	if err != nil {
		slog.Error("failed to open attachment folder", "error", err)
		os.Exit(1)
	}

	// --- Run Backfill ---
	ingester := sync.NewIngester(sync.IngesterConfig{
		Registry:      kalliope,
		Store:         graphStore,
		Files:         attachmentDir,
		SenderURI:     cfg.ABBURI,
		MaxMessageAge: sinceDuration,
		DossierTypes:  dossierTypes,
	})

	start := time.Now()
	if err := ingester.Run(ctx); err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	slog.Info("backfill complete", "elapsed", time.Since(start))
}
