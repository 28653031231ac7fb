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

// Package sync implements the four scheduled synchronization jobs
// between the Kalliope registry and the triple store: ingesting inbound
// postal items, confirming their delivery, sending locally-authored
// replies and forwarding regulatory submissions.
//
// Every job follows the same error discipline: a failure that prevents
// the whole batch aborts the run, while a failure on one item is
// recorded as a sync error and processing continues with the next item.
// Idempotency rests on exists-by-URI checks and write-back markers in
// the store, so overlapping or repeated runs converge on the same
// state.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lblod/kalliope-sync/internal/models"
	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
)

type inboundRegistry interface {
	FetchOutboundItems(ctx context.Context, since time.Time, until *time.Time, dossierTypes []string) ([]registry.Poststuk, error)
	FetchAttachment(ctx context.Context, attachmentURL string) ([]byte, error)
}

type inboundStore interface {
	OrganizationExists(ctx context.Context, orgURI string) (bool, error)
	MessageExists(ctx context.Context, graph, messageURI string) (bool, error)
	ConversationByReference(ctx context.Context, graph, referenceID string) (string, error)
	InsertConversationWithMessage(ctx context.Context, graph string, c *models.Conversation, m *models.Message) error
	AppendMessage(ctx context.Context, graph, conversationURI string, m *models.Message) error
	UpdateConversationType(ctx context.Context, graph, conversationURI, communicationType string) error
	RefreshLastMessage(ctx context.Context, graph, conversationURI string) error
	InsertAttachment(ctx context.Context, messageURI string, a *models.Attachment) error
	CaseHandlerByIdentifier(ctx context.Context, graph, identifier string) (string, error)
	InsertCaseHandler(ctx context.Context, graph string, h *models.CaseHandler) error
	LinkCaseHandler(ctx context.Context, graph, messageURI, handlerURI string) error
	LogSyncError(ctx context.Context, itemURI, message string, cause error)
}

type attachmentSaver interface {
	Save(id, ext string, buf []byte) (string, error)
}

// IngesterConfig wires an Ingester.
type IngesterConfig struct {
	Registry inboundRegistry
	Store    inboundStore
	Files    attachmentSaver

	// SenderURI is the organization URI recorded as sender on every
	// ingested message.
	SenderURI string

	// MaxMessageAge bounds the fetch window: items older than this are
	// never requested again.
	MaxMessageAge time.Duration

	// DossierTypes optionally narrows the fetch to specific dossier
	// types. Empty means all types.
	DossierTypes []string
}

// Ingester pulls outbound postal items from the registry and stores
// them as conversations and messages in the per-organization graphs.
type Ingester struct {
	cfg IngesterConfig
}

// NewIngester creates an inbound sync job.
func NewIngester(cfg IngesterConfig) *Ingester {
	return &Ingester{cfg: cfg}
}

// Run executes one inbound sync pass. A batch fetch failure aborts the
// run; per-item failures are recorded and skipped.
func (i *Ingester) Run(ctx context.Context) error {
	since := registry.Now().Add(-i.cfg.MaxMessageAge)

	items, err := i.cfg.Registry.FetchOutboundItems(ctx, since, nil, i.cfg.DossierTypes)
	if err != nil {
		i.cfg.Store.LogSyncError(ctx, "", "failed to fetch poststukken from Kalliope", err)
		return fmt.Errorf("fetch poststukken: %w", err)
	}

	slog.Info("inbound sync run", "items", len(items), "since", registry.FormatTimestamp(since))

	stored := 0
	for idx := range items {
		item := &items[idx]
		if err := i.processItem(ctx, item); err != nil {
			i.cfg.Store.LogSyncError(ctx, item.URI, "failed to ingest poststuk", err)
			continue
		}
		stored++
	}

	slog.Info("inbound sync done", "items", len(items), "stored", stored)
	return nil
}

func (i *Ingester) processItem(ctx context.Context, item *registry.Poststuk) error {
	conversation, message, err := registry.ParsePoststuk(item, i.cfg.SenderURI)
	if err != nil {
		if registry.IsValidation(err) {
			slog.Info("skipping poststuk", "uri", item.URI, "reason", err)
			return nil
		}
		return err
	}

	exists, err := i.cfg.Store.OrganizationExists(ctx, message.Recipient)
	if err != nil {
		return fmt.Errorf("check organization %s: %w", message.Recipient, err)
	}
	if !exists {
		return fmt.Errorf("recipient organization %s is unknown", message.Recipient)
	}

	graph := store.MessagesGraph(store.OrgUUIDFromURI(message.Recipient))

	stored, err := i.cfg.Store.MessageExists(ctx, graph, message.URI)
	if err != nil {
		return fmt.Errorf("check message %s: %w", message.URI, err)
	}
	if stored {
		slog.Debug("message already ingested", "uri", message.URI)
		return nil
	}

	conversationURI, err := i.cfg.Store.ConversationByReference(ctx, graph, conversation.ReferenceID)
	if err != nil {
		return fmt.Errorf("resolve conversation %q: %w", conversation.ReferenceID, err)
	}
	if conversationURI == "" {
		if err := i.cfg.Store.InsertConversationWithMessage(ctx, graph, conversation, message); err != nil {
			return fmt.Errorf("insert conversation with message: %w", err)
		}
		conversationURI = conversation.URI
	} else {
		if err := i.cfg.Store.AppendMessage(ctx, graph, conversationURI, message); err != nil {
			return fmt.Errorf("append message to %s: %w", conversationURI, err)
		}
		if err := i.cfg.Store.UpdateConversationType(ctx, graph, conversationURI, message.CommunicationType); err != nil {
			return fmt.Errorf("update conversation type: %w", err)
		}
	}

	// Attachment failures are isolated per attachment: the message
	// stays, the remaining attachments are still tried.
	for _, ref := range item.Bijlages {
		if err := i.ingestAttachment(ctx, message.URI, ref); err != nil {
			i.cfg.Store.LogSyncError(ctx, message.URI,
				fmt.Sprintf("failed to ingest attachment %s", ref.URL), err)
		}
	}

	if err := i.cfg.Store.RefreshLastMessage(ctx, graph, conversationURI); err != nil {
		return fmt.Errorf("refresh last message of %s: %w", conversationURI, err)
	}

	if message.CaseHandler != nil && message.CaseHandler.Identifier != "" {
		if err := i.linkCaseHandler(ctx, graph, message.URI, message.CaseHandler); err != nil {
			i.cfg.Store.LogSyncError(ctx, message.URI, "failed to link case handler", err)
		}
	}

	slog.Info("ingested poststuk", "uri", message.URI, "conversation", conversationURI)
	return nil
}

func (i *Ingester) ingestAttachment(ctx context.Context, messageURI string, ref registry.AttachmentRef) error {
	buf, err := i.cfg.Registry.FetchAttachment(ctx, ref.URL)
	if err != nil {
		return fmt.Errorf("fetch attachment: %w", err)
	}

	attachment := registry.ParseAttachmentRef(ref, int64(len(buf)))
	mimeType, err := i.cfg.Files.Save(attachment.ID, attachment.Extension, buf)
	if err != nil {
		return fmt.Errorf("save attachment: %w", err)
	}
	attachment.MimeType = mimeType

	if err := i.cfg.Store.InsertAttachment(ctx, messageURI, attachment); err != nil {
		return fmt.Errorf("store attachment records: %w", err)
	}
	return nil
}

// linkCaseHandler resolves the case handler by identifier, creating the
// record on first sight, and links the message to it. Handler records
// live in the public graph; the link lives next to the message.
func (i *Ingester) linkCaseHandler(ctx context.Context, graph, messageURI string, h *models.CaseHandler) error {
	handlerURI, err := i.cfg.Store.CaseHandlerByIdentifier(ctx, store.PublicGraph, h.Identifier)
	if err != nil {
		return fmt.Errorf("resolve case handler %q: %w", h.Identifier, err)
	}
	if handlerURI == "" {
		h.UUID = uuid.New().String()
		h.URI = fmt.Sprintf("http://data.lblod.info/id/dossierbehandelaars/%s", h.UUID)
		if err := i.cfg.Store.InsertCaseHandler(ctx, store.PublicGraph, h); err != nil {
			return fmt.Errorf("insert case handler %q: %w", h.Identifier, err)
		}
		handlerURI = h.URI
	}
	if err := i.cfg.Store.LinkCaseHandler(ctx, graph, messageURI, handlerURI); err != nil {
		return fmt.Errorf("link case handler: %w", err)
	}
	return nil
}
