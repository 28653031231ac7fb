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
	"time"

	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
)

// replySubjectPrefix marks a locally-authored message as a reaction to
// an earlier registry item.
const replySubjectPrefix = "Reactie op "

type outboundRegistry interface {
	PostMessage(ctx context.Context, data registry.MessageData, files []registry.FilePart) error
}

type outboundStore interface {
	UnsentMessages(ctx context.Context, recipientURI string, maxAttempts int) ([]store.OutboundMessage, error)
	MessageAttachments(ctx context.Context, messageURI string) ([]store.AttachmentFile, error)
	OriginalMessage(ctx context.Context, graph, conversationURI string) (string, error)
	MarkMessageSent(ctx context.Context, graph, messageURI string, receivedAt time.Time) error
	IncrementSendAttempts(ctx context.Context, graph, messageURI string) error
	LogSyncError(ctx context.Context, itemURI, message string, cause error)
}

type fileResolver interface {
	Resolve(rel string) string
}

// SenderConfig wires a Sender.
type SenderConfig struct {
	Registry outboundRegistry
	Store    outboundStore
	Files    fileResolver

	// RecipientURI selects the messages to send: only messages addressed
	// to this organization leave through this job.
	RecipientURI string

	// MaxAttempts bounds the send retries per message.
	MaxAttempts int
}

// Sender pushes locally-authored replies to the registry.
type Sender struct {
	cfg SenderConfig
}

// NewSender creates an outbound sync job.
func NewSender(cfg SenderConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Run executes one outbound pass.
func (s *Sender) Run(ctx context.Context) error {
	messages, err := s.cfg.Store.UnsentMessages(ctx, s.cfg.RecipientURI, s.cfg.MaxAttempts)
	if err != nil {
		s.cfg.Store.LogSyncError(ctx, "", "failed to select unsent messages", err)
		return fmt.Errorf("select unsent messages: %w", err)
	}

	slog.Info("outbound sync run", "messages", len(messages))

	sent := 0
	for _, m := range messages {
		if err := s.send(ctx, m); err != nil {
			s.cfg.Store.LogSyncError(ctx, m.URI, "failed to send message to Kalliope", err)
			if incErr := s.cfg.Store.IncrementSendAttempts(ctx, m.Graph, m.URI); incErr != nil {
				s.cfg.Store.LogSyncError(ctx, m.URI, "failed to update send attempt counter", incErr)
			}
			continue
		}
		sent++
	}

	slog.Info("outbound sync done", "messages", len(messages), "sent", sent)
	return nil
}

func (s *Sender) send(ctx context.Context, m store.OutboundMessage) error {
	original, err := s.cfg.Store.OriginalMessage(ctx, m.Graph, m.ConversationURI)
	if err != nil {
		return fmt.Errorf("resolve original message: %w", err)
	}

	attachments, err := s.cfg.Store.MessageAttachments(ctx, m.URI)
	if err != nil {
		return fmt.Errorf("resolve attachments: %w", err)
	}

	data := registry.MessageData{
		URI:          m.URI,
		AfzenderURI:  m.Sender,
		Betreft:      replySubjectPrefix + m.Subject,
		Inhoud:       m.Body,
		DossierURI:   m.DossierURI,
		VerzendDatum: registry.FormatTimestamp(m.SentAt),
	}
	// A reply correlates against the conversation's first message. When
	// the message IS the first one there is nothing to correlate with.
	if original != m.URI {
		data.OrigineelBerichtURI = original
	}

	files := make([]registry.FilePart, 0, len(attachments))
	for _, a := range attachments {
		files = append(files, registry.FilePart{
			Name:     a.Name,
			Path:     s.cfg.Files.Resolve(a.Path),
			MimeType: a.MimeType,
		})
	}

	if err := s.cfg.Registry.PostMessage(ctx, data, files); err != nil {
		return fmt.Errorf("post message: %w", err)
	}

	if err := s.cfg.Store.MarkMessageSent(ctx, m.Graph, m.URI, registry.Now()); err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}

	slog.Info("sent message to Kalliope", "uri", m.URI, "attachments", len(files))
	return nil
}
