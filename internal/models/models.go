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

// Package models defines the data structures shared across the sync service.
package models

import "time"

// DeliveryStatus is the delivery state of an ingested message, persisted
// as a status resource URI in the triple store.
type DeliveryStatus string

const (
	// StatusDeliveredUnconfirmed means the message is stored locally but
	// the registry has not yet acknowledged our delivery confirmation.
	StatusDeliveredUnconfirmed DeliveryStatus = "http://data.lblod.info/berichten/statussen/delivered-unconfirmed"

	// StatusDeliveredConfirmed means the registry acknowledged the
	// delivery confirmation for this message.
	StatusDeliveredConfirmed DeliveryStatus = "http://data.lblod.info/berichten/statussen/delivered-confirmed"

	// StatusConfirmationFailed is terminal: the confirmation POST failed
	// more times than the configured maximum and will not be retried.
	StatusConfirmationFailed DeliveryStatus = "http://data.lblod.info/berichten/statussen/delivered-confirmation-failed"
)

// Conversation is a persistent message thread, unique per reference
// identifier within an organization's graph. Never deleted.
type Conversation struct {
	URI               string
	UUID              string
	ReferenceID       string // the registry's dossier number / ABB reference
	Subject           string
	CommunicationType string
	ProcessingTime    string // ISO 8601 duration, e.g. "P30D"
	DossierURI        string // optional linked case
}

// Message is one unit of correspondence belonging to exactly one
// Conversation. Immutable after insertion except for delivery status,
// timestamps and retry counters.
type Message struct {
	URI               string
	UUID              string
	SentAt            time.Time
	ReceivedAt        *time.Time // nil means not yet delivered to the other party
	Sender            string     // organization URI
	Recipient         string     // organization URI
	Body              string
	CommunicationType string
	Status            DeliveryStatus
	DeliveredAt       *time.Time
	CaseHandler       *CaseHandler
}

// Attachment is binary content plus metadata owned by one Message.
// Two linked records exist in the store: the data object (metadata)
// and the file (physical storage pointer).
type Attachment struct {
	UUID      string
	ID        string // content identifier, taken from the registry download URL
	URL       string // registry download URL
	Name      string // original file name
	Extension string
	MimeType  string
	Size      int64
	CreatedAt time.Time
	DataURI   string // metadata record URI
	FileURI   string // share:// storage pointer
}

// CaseHandler identifies the person handling a dossier on the registry
// side. Deduplicated by identifier, linked many-to-one from messages.
type CaseHandler struct {
	URI        string
	UUID       string
	Identifier string
	Email      string
}

// Submission is a regulatory filing tracked independently of messages.
// Submissions are authored by the case-management application; the sync
// service only forwards eligible ones and writes back delivery state.
type Submission struct {
	URI               string
	UUID              string
	SenderURI         string // submitting organization
	SenderType        string // organization classification URI, empty when unknown
	DecisionType      string
	DecisionTypeLabel string
	SessionDate       *time.Time
	FinancialYear     string // raw boekjaar value, validated at payload build time
	SentAt            time.Time
}

// SyncError is an append-only audit record for operators. Never updated
// or deleted.
type SyncError struct {
	URI       string
	UUID      string
	CreatedAt time.Time
	Message   string
	Cause     string
	ItemURI   string // optional link to the triggering message or submission
}
