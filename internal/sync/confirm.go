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

package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lblod/kalliope-sync/internal/models"
	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
)

type confirmRegistry interface {
	PostConfirmation(ctx context.Context, conf registry.Confirmation) error
}

type confirmStore interface {
	UnconfirmedMessages(ctx context.Context, maxAttempts int) ([]store.UnconfirmedMessage, error)
	SetMessageStatus(ctx context.Context, graph, messageURI string, status models.DeliveryStatus) error
	IncrementConfirmationAttempts(ctx context.Context, graph, messageURI string) error
	LogSyncError(ctx context.Context, itemURI, message string, cause error)
}

// ConfirmerConfig wires a Confirmer.
type ConfirmerConfig struct {
	Registry confirmRegistry
	Store    confirmStore

	// MaxAttempts bounds the confirmation retries per message. Once a
	// message has failed this many times its status becomes terminal.
	MaxAttempts int
}

// Confirmer completes the delivery handshake: for every stored message
// still delivered-unconfirmed it reports the delivery timestamp back to
// the registry and advances the message status.
type Confirmer struct {
	cfg ConfirmerConfig
}

// NewConfirmer creates a confirmation sync job.
func NewConfirmer(cfg ConfirmerConfig) *Confirmer {
	return &Confirmer{cfg: cfg}
}

// Run executes one confirmation pass.
func (c *Confirmer) Run(ctx context.Context) error {
	messages, err := c.cfg.Store.UnconfirmedMessages(ctx, c.cfg.MaxAttempts)
	if err != nil {
		c.cfg.Store.LogSyncError(ctx, "", "failed to select unconfirmed messages", err)
		return fmt.Errorf("select unconfirmed messages: %w", err)
	}

	slog.Info("confirmation sync run", "messages", len(messages))

	confirmed := 0
	for _, m := range messages {
		if err := c.confirm(ctx, m); err != nil {
			c.cfg.Store.LogSyncError(ctx, m.URI, "failed to confirm message delivery", err)
			continue
		}
		confirmed++
	}

	slog.Info("confirmation sync done", "messages", len(messages), "confirmed", confirmed)
	return nil
}

func (c *Confirmer) confirm(ctx context.Context, m store.UnconfirmedMessage) error {
	conf := registry.Confirmation{
		URIPoststukUit:       m.URI,
		DatumBeschikbaarheid: registry.FormatTimestamp(m.DeliveredAt),
	}

	if err := c.cfg.Registry.PostConfirmation(ctx, conf); err != nil {
		if incErr := c.cfg.Store.IncrementConfirmationAttempts(ctx, m.Graph, m.URI); incErr != nil {
			return fmt.Errorf("confirmation failed (%v) and counter update failed: %w", err, incErr)
		}
		// The failure that reaches the maximum parks the message in its
		// terminal status so the selection never returns it again.
		if m.Attempts+1 >= c.cfg.MaxAttempts {
			if stErr := c.cfg.Store.SetMessageStatus(ctx, m.Graph, m.URI, models.StatusConfirmationFailed); stErr != nil {
				return fmt.Errorf("confirmation failed (%v) and status update failed: %w", err, stErr)
			}
			slog.Warn("confirmation retries exhausted", "uri", m.URI, "attempts", m.Attempts+1)
		}
		return fmt.Errorf("post confirmation: %w", err)
	}

	if err := c.cfg.Store.SetMessageStatus(ctx, m.Graph, m.URI, models.StatusDeliveredConfirmed); err != nil {
		return fmt.Errorf("mark message confirmed: %w", err)
	}

	slog.Debug("confirmed message delivery", "uri", m.URI)
	return nil
}
