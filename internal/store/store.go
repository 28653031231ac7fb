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

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lblod/kalliope-sync/internal/models"
)

// PublicGraph holds cross-organization records: sync errors, case
// handlers and attachment file metadata.
const PublicGraph = "http://mu.semte.ch/graphs/public"

// MessagesGraph returns the organization partition holding messages and
// conversations for the given organization UUID.
func MessagesGraph(orgUUID string) string {
	return fmt.Sprintf("http://mu.semte.ch/graphs/organizations/%s/LoketLB-berichtenGebruiker", orgUUID)
}

// SubmissionsGraph returns the organization partition holding regulatory
// submissions for the given organization UUID.
func SubmissionsGraph(orgUUID string) string {
	return fmt.Sprintf("http://mu.semte.ch/graphs/organizations/%s/LoketLB-toezichtGebruiker", orgUUID)
}

// OrgUUIDFromURI derives the organization UUID from an organization URI
// (last path segment).
func OrgUUIDFromURI(orgURI string) string {
	parts := strings.Split(strings.TrimRight(orgURI, "/"), "/")
	return parts[len(parts)-1]
}

const prefixes = `PREFIX schema: <http://schema.org/>
PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
PREFIX ext: <http://mu.semte.ch/vocabularies/ext/>
PREFIX dct: <http://purl.org/dc/terms/>
PREFIX adms: <http://www.w3.org/ns/adms#>
PREFIX besluit: <http://data.vlaanderen.be/ns/besluit#>
PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
PREFIX pav: <http://purl.org/pav/>
PREFIX meb: <http://rdf.myexperiment.org/ontologies/base/>
PREFIX nfo: <http://www.semanticdesktop.org/ontologies/2007/03/22/nfo#>
PREFIX nie: <http://www.semanticdesktop.org/ontologies/2007/01/19/nie#>
PREFIX dbpedia: <http://dbpedia.org/ontology/>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
`

const xsdDateTimeLayout = "2006-01-02T15:04:05-07:00"

// Store provides the typed graph operations used by the sync engine.
// Each operation is a single independently-committed statement; the
// engine's idempotency rests on exists-by-URI checks, not transactions.
type Store struct {
	client *Client
}

// New creates a store over the given protocol client.
func New(client *Client) *Store {
	return &Store{client: client}
}

// Ping verifies the store answers queries, for health checking.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Ask(ctx, "ASK { }")
	return err
}

// OrganizationExists reports whether the organization is known to the
// store.
func (s *Store) OrganizationExists(ctx context.Context, orgURI string) (bool, error) {
	q := fmt.Sprintf(`%s
ASK {
    GRAPH <%s> {
        <%s> a besluit:Bestuurseenheid .
    }
}`, prefixes, PublicGraph, orgURI)
	return s.client.Ask(ctx, q)
}

// MessageExists reports whether a message with this URI is already
// stored in the organization graph. This is the sole deduplication
// mechanism for inbound sync.
func (s *Store) MessageExists(ctx context.Context, graph, messageURI string) (bool, error) {
	q := fmt.Sprintf(`%s
ASK {
    GRAPH <%s> {
        <%s> a schema:Message .
    }
}`, prefixes, graph, messageURI)
	return s.client.Ask(ctx, q)
}

// ConversationByReference returns the URI of the conversation with the
// given reference identifier, or "" when none exists yet.
func (s *Store) ConversationByReference(ctx context.Context, graph, referenceID string) (string, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?conversatie
WHERE {
    GRAPH <%s> {
        ?conversatie a schema:Conversation ;
            schema:identifier "%s" .
    }
}`, prefixes, graph, escapeLiteral(referenceID))

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return "", err
	}
	if len(bindings) == 0 {
		return "", nil
	}
	return bindings[0]["conversatie"].Value, nil
}

// messageTriples renders the triple block shared by both message insert
// shapes. Inbound messages are stored delivered-unconfirmed with the
// confirmation counter initialised.
func messageTriples(m *models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, `        <%s> a schema:Message ;
            mu:uuid "%s" ;
            schema:dateSent "%s"^^xsd:dateTime ;
            schema:dateReceived "%s"^^xsd:dateTime ;
            schema:text "%s" ;
            schema:sender <%s> ;
            schema:recipient <%s> ;
            dct:type "%s" ;
            adms:status <%s> ;
            ext:failedConfirmationAttempts 0`,
		m.URI, m.UUID,
		m.SentAt.Format(xsdDateTimeLayout),
		m.ReceivedAt.Format(xsdDateTimeLayout),
		escapeLiteral(m.Body),
		m.Sender, m.Recipient,
		escapeLiteral(m.CommunicationType),
		m.Status)
	if m.DeliveredAt != nil {
		fmt.Fprintf(&b, ` ;
            ext:deliveredAt "%s"^^xsd:dateTime`, m.DeliveredAt.Format(xsdDateTimeLayout))
	}
	b.WriteString(" .")
	return b.String()
}

// InsertConversationWithMessage creates a new conversation together with
// its first message.
func (s *Store) InsertConversationWithMessage(ctx context.Context, graph string, c *models.Conversation, m *models.Message) error {
	var dossier string
	if c.DossierURI != "" {
		dossier = fmt.Sprintf(` ;
            ext:dossierUri <%s>`, c.DossierURI)
	}
	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> a schema:Conversation ;
            mu:uuid "%s" ;
            schema:identifier "%s" ;
            schema:about "%s" ;
            dct:type "%s" ;
            schema:processingTime "%s" ;
            schema:hasPart <%s>%s .

%s
    }
}`, prefixes, graph,
		c.URI, c.UUID,
		escapeLiteral(c.ReferenceID),
		escapeLiteral(c.Subject),
		escapeLiteral(c.CommunicationType),
		escapeLiteral(c.ProcessingTime),
		m.URI, dossier,
		messageTriples(m))
	return s.client.Update(ctx, q)
}

// AppendMessage inserts a message and attaches it to an existing
// conversation.
func (s *Store) AppendMessage(ctx context.Context, graph, conversationURI string, m *models.Message) error {
	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> schema:hasPart <%s> .

%s
    }
}`, prefixes, graph, conversationURI, m.URI, messageTriples(m))
	return s.client.Update(ctx, q)
}

// UpdateConversationType replaces the conversation's current
// communication type with that of the newest message.
func (s *Store) UpdateConversationType(ctx context.Context, graph, conversationURI, communicationType string) error {
	q := fmt.Sprintf(`%s
DELETE {
    GRAPH <%s> {
        <%s> dct:type ?type .
    }
}
INSERT {
    GRAPH <%s> {
        <%s> dct:type "%s" .
    }
}
WHERE {
    GRAPH <%s> {
        <%s> a schema:Conversation .
        OPTIONAL { <%s> dct:type ?type . }
    }
}`, prefixes, graph, conversationURI, graph, conversationURI, escapeLiteral(communicationType), graph, conversationURI, conversationURI)
	return s.client.Update(ctx, q)
}

// RefreshLastMessage recomputes the conversation's lastMessage pointer
// from scratch in a single statement: the message with the maximum sent
// timestamp wins, ties broken by URI ordering. Recomputing instead of
// comparing against the stale pointer keeps concurrent runs idempotent.
func (s *Store) RefreshLastMessage(ctx context.Context, graph, conversationURI string) error {
	q := fmt.Sprintf(`%s
DELETE {
    GRAPH <%s> {
        <%s> ext:lastMessage ?oldMessage .
    }
}
INSERT {
    GRAPH <%s> {
        <%s> ext:lastMessage ?newMessage .
    }
}
WHERE {
    GRAPH <%s> {
        OPTIONAL { <%s> ext:lastMessage ?oldMessage . }
        {
            SELECT (?message AS ?newMessage)
            WHERE {
                GRAPH <%s> {
                    <%s> schema:hasPart ?message .
                    ?message schema:dateSent ?dateSent .
                }
            }
            ORDER BY DESC(?dateSent) DESC(STR(?message))
            LIMIT 1
        }
    }
}`, prefixes, graph, conversationURI, graph, conversationURI, graph, conversationURI, graph, conversationURI)
	return s.client.Update(ctx, q)
}

// InsertAttachment stores the two linked attachment records (data object
// and physical file) and links the data object to its message. All
// attachment records live in the public graph.
func (s *Store) InsertAttachment(ctx context.Context, messageURI string, a *models.Attachment) error {
	fileUUID := a.UUID + "-file"
	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> nie:hasPart <%s> .

        <%s> a nfo:FileDataObject ;
            mu:uuid "%s" ;
            nfo:fileName "%s" ;
            dct:format "%s" ;
            nfo:fileSize %d ;
            dbpedia:fileExtension "%s" ;
            dct:created "%s"^^xsd:dateTime .

        <%s> a nfo:FileDataObject ;
            mu:uuid "%s" ;
            nie:dataSource <%s> ;
            nfo:fileName "%s" ;
            dct:format "%s" ;
            nfo:fileSize %d ;
            dct:created "%s"^^xsd:dateTime .
    }
}`, prefixes, PublicGraph,
		messageURI, a.DataURI,
		a.DataURI, a.UUID,
		escapeLiteral(a.Name),
		escapeLiteral(a.MimeType),
		a.Size,
		escapeLiteral(a.Extension),
		a.CreatedAt.Format(xsdDateTimeLayout),
		a.FileURI, fileUUID, a.DataURI,
		escapeLiteral(a.ID+"."+a.Extension),
		escapeLiteral(a.MimeType),
		a.Size,
		a.CreatedAt.Format(xsdDateTimeLayout))
	return s.client.Update(ctx, q)
}

// CaseHandlerByIdentifier returns the URI of an existing case handler
// with this identifier, or "" when none exists.
func (s *Store) CaseHandlerByIdentifier(ctx context.Context, graph, identifier string) (string, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?dossierbehandelaar
WHERE {
    GRAPH <%s> {
        ?dossierbehandelaar a ext:Dossierbehandelaar ;
            dct:identifier "%s" .
    }
}`, prefixes, graph, escapeLiteral(identifier))

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return "", err
	}
	if len(bindings) == 0 {
		return "", nil
	}
	return bindings[0]["dossierbehandelaar"].Value, nil
}

// InsertCaseHandler creates a new case handler record.
func (s *Store) InsertCaseHandler(ctx context.Context, graph string, h *models.CaseHandler) error {
	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> a ext:Dossierbehandelaar ;
            mu:uuid "%s" ;
            dct:identifier "%s" ;
            schema:email "%s" .
    }
}`, prefixes, graph, h.URI, h.UUID, escapeLiteral(h.Identifier), escapeLiteral(h.Email))
	return s.client.Update(ctx, q)
}

// LinkCaseHandler links a message to its case handler.
func (s *Store) LinkCaseHandler(ctx context.Context, graph, messageURI, handlerURI string) error {
	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> ext:dossierbehandelaar <%s> .
    }
}`, prefixes, graph, messageURI, handlerURI)
	return s.client.Update(ctx, q)
}

// OutboundMessage is one locally-authored reply eligible for sending.
type OutboundMessage struct {
	Graph           string
	URI             string
	ConversationURI string
	ReferenceID     string
	Subject         string
	Body            string
	Sender          string
	DossierURI      string
	SentAt          time.Time
}

// UnsentMessages selects messages addressed to the given recipient that
// have no received timestamp yet and whose failed-send counter is below
// the maximum.
func (s *Store) UnsentMessages(ctx context.Context, recipientURI string, maxAttempts int) ([]OutboundMessage, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?g ?conversatie ?dossiernummer ?betreft ?dossieruri ?bericht ?van ?verzonden ?inhoud
WHERE {
    GRAPH ?g {
        ?conversatie a schema:Conversation ;
            schema:identifier ?dossiernummer ;
            schema:about ?betreft ;
            schema:hasPart ?bericht .
        OPTIONAL { ?conversatie ext:dossierUri ?dossieruri . }
        ?bericht a schema:Message ;
            schema:dateSent ?verzonden ;
            schema:text ?inhoud ;
            schema:sender ?van ;
            schema:recipient <%s> .
        FILTER NOT EXISTS { ?bericht schema:dateReceived ?ontvangen . }
        OPTIONAL { ?bericht ext:failedSendingAttempts ?attempts . }
        FILTER( COALESCE(?attempts, 0) < %d )
    }
}`, prefixes, recipientURI, maxAttempts)

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	messages := make([]OutboundMessage, 0, len(bindings))
	for _, b := range bindings {
		sentAt, err := parseDateTime(b["verzonden"].Value)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", b["bericht"].Value, err)
		}
		messages = append(messages, OutboundMessage{
			Graph:           b["g"].Value,
			URI:             b["bericht"].Value,
			ConversationURI: b["conversatie"].Value,
			ReferenceID:     b["dossiernummer"].Value,
			Subject:         b["betreft"].Value,
			Body:            b["inhoud"].Value,
			Sender:          b["van"].Value,
			DossierURI:      b["dossieruri"].Value,
			SentAt:          sentAt,
		})
	}
	return messages, nil
}

// AttachmentFile is the stored file reference of one attachment.
type AttachmentFile struct {
	Name     string // original attachment name
	Path     string // storage path relative to the attachment root
	MimeType string
}

// MessageAttachments returns the stored files attached to a message.
func (s *Store) MessageAttachments(ctx context.Context, messageURI string) ([]AttachmentFile, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?bijlagenaam ?file ?type
WHERE {
    GRAPH <%s> {
        <%s> nie:hasPart ?bijlage .
        ?bijlage nfo:fileName ?bijlagenaam ;
            dct:format ?type .
        ?file nie:dataSource ?bijlage .
    }
}`, prefixes, PublicGraph, messageURI)

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	files := make([]AttachmentFile, 0, len(bindings))
	for _, b := range bindings {
		files = append(files, AttachmentFile{
			Name:     b["bijlagenaam"].Value,
			Path:     strings.TrimPrefix(b["file"].Value, "share://"),
			MimeType: b["type"].Value,
		})
	}
	return files, nil
}

// OriginalMessage returns the URI of the first (oldest by sent
// timestamp, ties broken by URI) message in the conversation. The
// registry correlates replies against this message.
func (s *Store) OriginalMessage(ctx context.Context, graph, conversationURI string) (string, error) {
	q := fmt.Sprintf(`%s
SELECT ?origineelbericht
WHERE {
    GRAPH <%s> {
        <%s> schema:hasPart ?origineelbericht .
        ?origineelbericht schema:dateSent ?verzonden .
    }
}
ORDER BY ASC(?verzonden) ASC(STR(?origineelbericht))
LIMIT 1`, prefixes, graph, conversationURI)

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return "", err
	}
	if len(bindings) == 0 {
		return "", fmt.Errorf("conversation %s has no messages", conversationURI)
	}
	return bindings[0]["origineelbericht"].Value, nil
}

// MarkMessageSent records the moment the registry accepted the message
// as its received timestamp.
func (s *Store) MarkMessageSent(ctx context.Context, graph, messageURI string, receivedAt time.Time) error {
	q := fmt.Sprintf(`%s
INSERT {
    GRAPH <%s> {
        <%s> schema:dateReceived "%s"^^xsd:dateTime .
    }
}
WHERE {
    GRAPH <%s> {
        <%s> a schema:Message .
    }
}`, prefixes, graph, messageURI, receivedAt.Format(xsdDateTimeLayout), graph, messageURI)
	return s.client.Update(ctx, q)
}

// IncrementSendAttempts adds one to the message's failed-send counter.
func (s *Store) IncrementSendAttempts(ctx context.Context, graph, messageURI string) error {
	return s.incrementCounter(ctx, graph, messageURI, "schema:Message", "ext:failedSendingAttempts")
}

// IncrementConfirmationAttempts adds one to the message's
// failed-confirmation counter.
func (s *Store) IncrementConfirmationAttempts(ctx context.Context, graph, messageURI string) error {
	return s.incrementCounter(ctx, graph, messageURI, "schema:Message", "ext:failedConfirmationAttempts")
}

func (s *Store) incrementCounter(ctx context.Context, graph, subjectURI, subjectType, predicate string) error {
	q := fmt.Sprintf(`%s
DELETE {
    GRAPH <%s> {
        <%s> %s ?attempts .
    }
}
INSERT {
    GRAPH <%s> {
        <%s> %s ?next .
    }
}
WHERE {
    GRAPH <%s> {
        <%s> a %s .
        OPTIONAL { <%s> %s ?attempts . }
        BIND( COALESCE(?attempts, 0) + 1 AS ?next )
    }
}`, prefixes,
		graph, subjectURI, predicate,
		graph, subjectURI, predicate,
		graph, subjectURI, subjectType, subjectURI, predicate)
	return s.client.Update(ctx, q)
}

// UnconfirmedMessage is one stored message awaiting a delivery
// confirmation handshake.
type UnconfirmedMessage struct {
	Graph       string
	URI         string
	DeliveredAt time.Time
	Attempts    int
}

// UnconfirmedMessages selects delivered-unconfirmed messages whose
// failed-confirmation counter is below the maximum.
func (s *Store) UnconfirmedMessages(ctx context.Context, maxAttempts int) ([]UnconfirmedMessage, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?g ?bericht ?deliveredAt ?confirmationAttempts
WHERE {
    GRAPH ?g {
        ?bericht a schema:Message ;
            adms:status <%s> ;
            ext:deliveredAt ?deliveredAt .
        OPTIONAL { ?bericht ext:failedConfirmationAttempts ?confirmationAttempts . }
        FILTER( COALESCE(?confirmationAttempts, 0) < %d )
    }
}`, prefixes, models.StatusDeliveredUnconfirmed, maxAttempts)

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	messages := make([]UnconfirmedMessage, 0, len(bindings))
	for _, b := range bindings {
		deliveredAt, err := parseDateTime(b["deliveredAt"].Value)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", b["bericht"].Value, err)
		}
		attempts := 0
		if v := b["confirmationAttempts"].Value; v != "" {
			attempts, _ = strconv.Atoi(v)
		}
		messages = append(messages, UnconfirmedMessage{
			Graph:       b["g"].Value,
			URI:         b["bericht"].Value,
			DeliveredAt: deliveredAt,
			Attempts:    attempts,
		})
	}
	return messages, nil
}

// SetMessageStatus replaces the message's delivery status.
func (s *Store) SetMessageStatus(ctx context.Context, graph, messageURI string, status models.DeliveryStatus) error {
	q := fmt.Sprintf(`%s
DELETE {
    GRAPH <%s> {
        <%s> adms:status ?status .
    }
}
INSERT {
    GRAPH <%s> {
        <%s> adms:status <%s> .
    }
}
WHERE {
    GRAPH <%s> {
        <%s> a schema:Message .
        OPTIONAL { <%s> adms:status ?status . }
    }
}`, prefixes, graph, messageURI, graph, messageURI, status, graph, messageURI, messageURI)
	return s.client.Update(ctx, q)
}

// parseDateTime parses an xsd:dateTime literal coming back from the
// store. Stored values are second precision with a numeric offset, but
// older data may carry fractional seconds or a Z offset.
func parseDateTime(value string) (time.Time, error) {
	for _, layout := range []string{
		xsdDateTimeLayout,
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable xsd:dateTime %q", value)
}
