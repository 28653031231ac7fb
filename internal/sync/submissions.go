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
	"strconv"
	"strings"
	"time"

	"github.com/lblod/kalliope-sync/internal/exclusion"
	"github.com/lblod/kalliope-sync/internal/models"
	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
)

// submissionDossierType is the registry dossier type of every forwarded
// decision filing.
const submissionDossierType = "https://kalliope.abb.vlaanderen.be/ld/algemeen/dossierType/besluit"

type submissionRegistry interface {
	PostSubmission(ctx context.Context, data registry.SubmissionData) error
}

type submissionStore interface {
	EligibleSubmissions(ctx context.Context, maxAttempts int) ([]models.Submission, error)
	MarkSubmissionSent(ctx context.Context, graph, submissionURI string, receivedAt time.Time) error
	IncrementSubmissionAttempts(ctx context.Context, graph, submissionURI string) error
	LogSyncError(ctx context.Context, itemURI, message string, cause error)
}

// SubmitterConfig wires a Submitter.
type SubmitterConfig struct {
	Registry submissionRegistry
	Store    submissionStore

	// Exclusions suppresses submissions that reach the registry through
	// another channel. Excluded submissions are skipped without a retry
	// counter change so a rule update makes them eligible again.
	Exclusions *exclusion.RuleSet

	// Routing decides which submissions link to the worship UI instead
	// of the default supervision UI.
	Routing *exclusion.RuleSet

	// SupervisionBaseURL and WorshipBaseURL are the UI locations the
	// registry links back to per submission.
	SupervisionBaseURL string
	WorshipBaseURL     string

	// MaxAttempts bounds the send retries per submission.
	MaxAttempts int
}

// Submitter forwards regulatory submissions to the registry.
type Submitter struct {
	cfg SubmitterConfig
}

// NewSubmitter creates a submission sync job.
func NewSubmitter(cfg SubmitterConfig) *Submitter {
	return &Submitter{cfg: cfg}
}

// Run executes one submission pass.
func (s *Submitter) Run(ctx context.Context) error {
	submissions, err := s.cfg.Store.EligibleSubmissions(ctx, s.cfg.MaxAttempts)
	if err != nil {
		s.cfg.Store.LogSyncError(ctx, "", "failed to select eligible submissions", err)
		return fmt.Errorf("select eligible submissions: %w", err)
	}

	slog.Info("submission sync run", "submissions", len(submissions))

	sent := 0
	for _, sub := range submissions {
		if rule, excluded := s.cfg.Exclusions.Excluded(sub); excluded {
			slog.Info("submission excluded", "uri", sub.URI, "rule", rule)
			continue
		}
		graph := store.SubmissionsGraph(store.OrgUUIDFromURI(sub.SenderURI))
		if err := s.send(ctx, graph, sub); err != nil {
			s.cfg.Store.LogSyncError(ctx, sub.URI, "failed to send submission to Kalliope", err)
			if incErr := s.cfg.Store.IncrementSubmissionAttempts(ctx, graph, sub.URI); incErr != nil {
				s.cfg.Store.LogSyncError(ctx, sub.URI, "failed to update submission attempt counter", incErr)
			}
			continue
		}
		sent++
	}

	slog.Info("submission sync done", "submissions", len(submissions), "sent", sent)
	return nil
}

func (s *Submitter) send(ctx context.Context, graph string, sub models.Submission) error {
	data := registry.SubmissionData{
		URI:               sub.URI,
		AfzenderURI:       sub.SenderURI,
		Betreft:           s.subject(sub),
		URLToezicht:       s.supervisionURL(sub),
		TypePoststuk:      submissionDossierType,
		TypeMelding:       sub.DecisionType,
		DatumVanVerzenden: registry.FormatTimestamp(sub.SentAt),
	}

	if sub.FinancialYear != "" {
		year, err := strconv.Atoi(sub.FinancialYear)
		if err != nil {
			slog.Warn("dropping unparseable boekjaar", "uri", sub.URI, "boekjaar", sub.FinancialYear)
		} else {
			data.Boekjaar = &year
		}
	}

	if err := s.cfg.Registry.PostSubmission(ctx, data); err != nil {
		return fmt.Errorf("post submission: %w", err)
	}

	if err := s.cfg.Store.MarkSubmissionSent(ctx, graph, sub.URI, registry.Now()); err != nil {
		return fmt.Errorf("mark submission sent: %w", err)
	}

	slog.Info("sent submission to Kalliope", "uri", sub.URI)
	return nil
}

// subject renders the human-readable description: the decision type
// label followed by the session date when one is known.
func (s *Submitter) subject(sub models.Submission) string {
	subject := sub.DecisionTypeLabel
	if sub.SessionDate != nil {
		subject = strings.TrimSpace(subject + " " + registry.FormatDate(*sub.SessionDate))
	}
	return subject
}

// supervisionURL builds the UI deep link the registry shows next to the
// submission. Worship filings link to the worship administration UI.
func (s *Submitter) supervisionURL(sub models.Submission) string {
	base := s.cfg.SupervisionBaseURL
	if _, worship := s.cfg.Routing.Excluded(sub); worship {
		base = s.cfg.WorshipBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + sub.UUID
}
