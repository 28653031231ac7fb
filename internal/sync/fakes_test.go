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
	"time"

	"github.com/lblod/kalliope-sync/internal/models"
	"github.com/lblod/kalliope-sync/internal/store"
)

// fakeStore implements the store interfaces of all four jobs, recording
// every mutation for assertions.
type fakeStore struct {
	// canned answers
	orgExists       bool
	orgExistsErr    error
	messageExists   bool
	conversationURI string
	handlerURIs     map[string]string
	unconfirmed     []store.UnconfirmedMessage
	unsent          []store.OutboundMessage
	msgAttachments  map[string][]store.AttachmentFile
	originals       map[string]string
	eligible        []models.Submission
	insertErr       error

	// recorded mutations
	insertedConversations []*models.Conversation
	appendedMessages      []*models.Message
	typeUpdates           []string
	refreshed             []string
	attachments           []*models.Attachment
	insertedHandlers      []*models.CaseHandler
	handlerLinks          [][2]string // message URI, handler URI
	statuses              map[string]models.DeliveryStatus
	confirmIncrements     []string
	sendIncrements        []string
	markedSent            []string
	markedSubmissions     []string
	submissionIncrements  []string
	syncErrors            []string // item URIs, "" for batch-level
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgExists:      true,
		handlerURIs:    map[string]string{},
		msgAttachments: map[string][]store.AttachmentFile{},
		originals:      map[string]string{},
		statuses:       map[string]models.DeliveryStatus{},
	}
}

func (f *fakeStore) OrganizationExists(_ context.Context, orgURI string) (bool, error) {
	return f.orgExists, f.orgExistsErr
}

func (f *fakeStore) MessageExists(_ context.Context, graph, messageURI string) (bool, error) {
	return f.messageExists, nil
}

func (f *fakeStore) ConversationByReference(_ context.Context, graph, referenceID string) (string, error) {
	return f.conversationURI, nil
}

func (f *fakeStore) InsertConversationWithMessage(_ context.Context, graph string, c *models.Conversation, m *models.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.insertedConversations = append(f.insertedConversations, c)
	f.appendedMessages = append(f.appendedMessages, m)
	return nil
}

func (f *fakeStore) AppendMessage(_ context.Context, graph, conversationURI string, m *models.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.appendedMessages = append(f.appendedMessages, m)
	return nil
}

func (f *fakeStore) UpdateConversationType(_ context.Context, graph, conversationURI, communicationType string) error {
	f.typeUpdates = append(f.typeUpdates, communicationType)
	return nil
}

func (f *fakeStore) RefreshLastMessage(_ context.Context, graph, conversationURI string) error {
	f.refreshed = append(f.refreshed, conversationURI)
	return nil
}

func (f *fakeStore) InsertAttachment(_ context.Context, messageURI string, a *models.Attachment) error {
	f.attachments = append(f.attachments, a)
	return nil
}

func (f *fakeStore) CaseHandlerByIdentifier(_ context.Context, graph, identifier string) (string, error) {
	return f.handlerURIs[identifier], nil
}

func (f *fakeStore) InsertCaseHandler(_ context.Context, graph string, h *models.CaseHandler) error {
	f.insertedHandlers = append(f.insertedHandlers, h)
	return nil
}

func (f *fakeStore) LinkCaseHandler(_ context.Context, graph, messageURI, handlerURI string) error {
	f.handlerLinks = append(f.handlerLinks, [2]string{messageURI, handlerURI})
	return nil
}

func (f *fakeStore) UnconfirmedMessages(_ context.Context, maxAttempts int) ([]store.UnconfirmedMessage, error) {
	return f.unconfirmed, nil
}

func (f *fakeStore) SetMessageStatus(_ context.Context, graph, messageURI string, status models.DeliveryStatus) error {
	f.statuses[messageURI] = status
	return nil
}

func (f *fakeStore) IncrementConfirmationAttempts(_ context.Context, graph, messageURI string) error {
	f.confirmIncrements = append(f.confirmIncrements, messageURI)
	return nil
}

func (f *fakeStore) UnsentMessages(_ context.Context, recipientURI string, maxAttempts int) ([]store.OutboundMessage, error) {
	return f.unsent, nil
}

func (f *fakeStore) MessageAttachments(_ context.Context, messageURI string) ([]store.AttachmentFile, error) {
	return f.msgAttachments[messageURI], nil
}

func (f *fakeStore) OriginalMessage(_ context.Context, graph, conversationURI string) (string, error) {
	return f.originals[conversationURI], nil
}

func (f *fakeStore) MarkMessageSent(_ context.Context, graph, messageURI string, receivedAt time.Time) error {
	f.markedSent = append(f.markedSent, messageURI)
	return nil
}

func (f *fakeStore) IncrementSendAttempts(_ context.Context, graph, messageURI string) error {
	f.sendIncrements = append(f.sendIncrements, messageURI)
	return nil
}

func (f *fakeStore) EligibleSubmissions(_ context.Context, maxAttempts int) ([]models.Submission, error) {
	return f.eligible, nil
}

func (f *fakeStore) MarkSubmissionSent(_ context.Context, graph, submissionURI string, receivedAt time.Time) error {
	f.markedSubmissions = append(f.markedSubmissions, submissionURI)
	return nil
}

func (f *fakeStore) IncrementSubmissionAttempts(_ context.Context, graph, submissionURI string) error {
	f.submissionIncrements = append(f.submissionIncrements, submissionURI)
	return nil
}

func (f *fakeStore) LogSyncError(_ context.Context, itemURI, message string, cause error) {
	f.syncErrors = append(f.syncErrors, itemURI)
}
