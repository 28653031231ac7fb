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

// Kalliope Sync Service
//
// Entry point for the scheduled synchronization service. It:
//  1. Loads configuration from environment variables
//  2. Connects to the triple store and the Kalliope registry API
//  3. Opens the attachment folder and loads the exclusion rules
//  4. Schedules the inbound, confirmation, outbound and submission jobs
//  5. Serves a health check endpoint
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lblod/kalliope-sync/internal/config"
	"github.com/lblod/kalliope-sync/internal/exclusion"
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

	slog.Info("starting Kalliope sync service")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"messages_cron", cfg.MessagesCronPattern,
		"confirmations_cron", cfg.ConfirmationsCronPattern,
		"submissions_cron", cfg.SubmissionsCronPattern,
		"max_message_age_days", cfg.MaxMessageAgeDays,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Triple Store ---
	graphStore := store.New(store.NewClient(cfg.SparqlQueryEndpoint, cfg.SparqlUpdateEndpoint))

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

	// --- Exclusion Rules ---
	exclusions, err := exclusion.Load(cfg.ExclusionRulesPath)
	if err != nil {
		slog.Error("failed to load exclusion rules", "error", err)
		os.Exit(1)
	}
	slog.Info("exclusion rules loaded", "rules", len(exclusions.Rules))

	// --- Sync Jobs ---
	ingester := sync.NewIngester(sync.IngesterConfig{
		Registry:      kalliope,
		Store:         graphStore,
		Files:         attachmentDir,
		SenderURI:     cfg.ABBURI,
		MaxMessageAge: time.Duration(cfg.MaxMessageAgeDays) * 24 * time.Hour,
	})
	confirmer := sync.NewConfirmer(sync.ConfirmerConfig{
		Registry:    kalliope,
		Store:       graphStore,
		MaxAttempts: cfg.MaxConfirmationAttempts,
	})
	sender := sync.NewSender(sync.SenderConfig{
		Registry:     kalliope,
		Store:        graphStore,
		Files:        attachmentDir,
		RecipientURI: cfg.ABBURI,
		MaxAttempts:  cfg.MaxSendingAttempts,
	})
	submitter := sync.NewSubmitter(sync.SubmitterConfig{
		Registry:           kalliope,
		Store:              graphStore,
		Exclusions:         exclusions,
		Routing:            exclusion.WorshipRouting(),
		SupervisionBaseURL: cfg.SubmissionBaseURL,
		WorshipBaseURL:     cfg.WorshipBaseURL,
		MaxAttempts:        cfg.MaxSendingAttempts,
	})

	// --- Scheduler ---
	// Jobs of the same kind never overlap: a run that outlasts its
	// interval skips the next tick instead of doubling up.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	schedule := func(name, pattern string, run func(context.Context) error) {
		_, err := scheduler.AddFunc(pattern, func() {
			if err := run(ctx); err != nil {
				slog.Error("sync run failed", "job", name, "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid cron pattern", "job", name, "pattern", pattern, "error", err)
			os.Exit(1)
		}
		slog.Info("job scheduled", "job", name, "pattern", pattern)
	}

	schedule("inbound", cfg.MessagesCronPattern, ingester.Run)
	schedule("outbound", cfg.MessagesCronPattern, sender.Run)
	schedule("confirmations", cfg.ConfirmationsCronPattern, confirmer.Run)
	schedule("submissions", cfg.SubmissionsCronPattern, submitter.Run)

	scheduler.Start()

	// --- Health Check Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := graphStore.Ping(r.Context()); err != nil {
			http.Error(w, "triple store unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		// Wait for in-flight job runs to finish.
		stopCtx := scheduler.Stop()
		<-stopCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("sync service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("sync service stopped")
}
