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

package registry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lblod/kalliope-sync/internal/models"
)

// defaultProcessingTime is the response allowance given to every new
// conversation.
const defaultProcessingTime = "P30D"

// ParsePoststuk converts one registry item into the internal
// conversation and message records. It is a pure transcoding step:
// attachment fetching is a separate, per-attachment fallible operation
// performed by the caller.
//
// A missing recipient URI is a validation error: the item is not
// intended for this system and must be skipped, not retried.
func ParsePoststuk(p *Poststuk, senderURI string) (*models.Conversation, *models.Message, error) {
	if strings.TrimSpace(p.Bestemmeling.URI) == "" {
		return nil, nil, &ValidationError{
			Reason: fmt.Sprintf("poststuk %s has no bestemmeling URI; not intended for this system", p.URI),
		}
	}

	sourceTime := firstNonEmpty(p.VerzendDatum, p.DatumBeschikbaar, p.CreatieDatum)
	sentAt, err := NormalizeTimestamp(sourceTime)
	if err != nil {
		return nil, nil, fmt.Errorf("poststuk %s: %w", p.URI, err)
	}

	receivedAt := Now()

	body := ""
	if p.Inhoud != nil {
		body = *p.Inhoud
	}

	// Historical registry versions name the conversation key
	// differently; both spellings are the same semantic field.
	referenceID := firstNonEmpty(p.ReferentieABB, p.DossierNummer)

	conversationUUID := uuid.New().String()
	conversation := &models.Conversation{
		URI:               fmt.Sprintf("http://data.lblod.info/id/conversaties/%s", conversationUUID),
		UUID:              conversationUUID,
		ReferenceID:       referenceID,
		Subject:           p.Betreft,
		CommunicationType: p.TypeCommunicatie,
		ProcessingTime:    defaultProcessingTime,
	}
	if p.Dossier != nil {
		conversation.DossierURI = p.Dossier.URI
	}

	// deliveredAt doubles as the availability timestamp reported in the
	// confirmation handshake.
	message := &models.Message{
		URI:               p.URI,
		UUID:              uuid.New().String(),
		SentAt:            sentAt,
		ReceivedAt:        &receivedAt,
		Sender:            senderURI,
		Recipient:         p.Bestemmeling.URI,
		Body:              body,
		CommunicationType: p.TypeCommunicatie,
		Status:            models.StatusDeliveredUnconfirmed,
		DeliveredAt:       &receivedAt,
	}
	if p.Behandelaar != nil {
		message.CaseHandler = &models.CaseHandler{
			Identifier: p.Behandelaar.Identifier,
			Email:      p.Behandelaar.Email,
		}
	}

	return conversation, message, nil
}

// ParseAttachmentRef derives the attachment metadata for one fetched
// attachment buffer. The content identifier is the last segment of the
// registry download URL. The MIME type is filled in by the caller after
// content sniffing.
func ParseAttachmentRef(ref AttachmentRef, size int64) *models.Attachment {
	parts := strings.Split(strings.TrimRight(ref.URL, "/"), "/")
	id := parts[len(parts)-1]

	ext := ""
	if i := strings.LastIndex(ref.Naam, "."); i >= 0 {
		ext = ref.Naam[i+1:]
	}

	return &models.Attachment{
		UUID:      uuid.New().String(),
		ID:        id,
		URL:       ref.URL,
		Name:      ref.Naam,
		Extension: ext,
		Size:      size,
		CreatedAt: Now(),
		DataURI:   fmt.Sprintf("http://mu.semte.ch/services/file-service/files/%s", id),
		FileURI:   fmt.Sprintf("share://%s.%s", id, ext),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
