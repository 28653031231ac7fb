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
	"time"

	"github.com/lblod/kalliope-sync/internal/models"
)

// EligibleSubmissions selects regulatory submissions that have not been
// received by the registry yet and whose failed-send counter is below
// the maximum. The submitting organization's classification is resolved
// from the public graph when present; a missing organization record
// leaves SenderType empty rather than failing the selection.
func (s *Store) EligibleSubmissions(ctx context.Context, maxAttempts int) ([]models.Submission, error) {
	q := fmt.Sprintf(`%s
SELECT DISTINCT ?g ?inzending ?inzendingUuid ?bestuurseenheid ?bestuurseenheidType ?decisionType ?decisionTypeLabel ?sessionDate ?boekjaar ?datumVanVerzenden
WHERE {
    GRAPH ?g {
        ?inzending a meb:Submission ;
            mu:uuid ?inzendingUuid ;
            pav:createdBy ?bestuurseenheid ;
            ext:decisionType ?decisionType ;
            dct:created ?datumVanVerzenden .
        OPTIONAL { ?inzending ext:sessionDate ?sessionDate . }
        OPTIONAL { ?inzending ext:boekjaar ?boekjaar . }
        FILTER NOT EXISTS { ?inzending schema:dateReceived ?ontvangen . }
        OPTIONAL { ?inzending ext:failedSendingAttempts ?attempts . }
        FILTER( COALESCE(?attempts, 0) < %d )
    }
    GRAPH <%s> {
        OPTIONAL { ?bestuurseenheid besluit:classificatie ?bestuurseenheidType . }
        OPTIONAL { ?decisionType skos:prefLabel ?decisionTypeLabel . }
    }
}`, prefixes, maxAttempts, PublicGraph)

	bindings, err := s.client.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(bindings))
	for _, b := range bindings {
		sentAt, err := parseDateTime(b["datumVanVerzenden"].Value)
		if err != nil {
			return nil, fmt.Errorf("submission %s: %w", b["inzending"].Value, err)
		}
		sub := models.Submission{
			URI:               b["inzending"].Value,
			UUID:              b["inzendingUuid"].Value,
			SenderURI:         b["bestuurseenheid"].Value,
			SenderType:        b["bestuurseenheidType"].Value,
			DecisionType:      b["decisionType"].Value,
			DecisionTypeLabel: b["decisionTypeLabel"].Value,
			FinancialYear:     b["boekjaar"].Value,
			SentAt:            sentAt,
		}
		if v := b["sessionDate"].Value; v != "" {
			sessionDate, err := parseDateTime(v)
			if err == nil {
				sub.SessionDate = &sessionDate
			}
		}
		submissions = append(submissions, sub)
	}
	return submissions, nil
}

// MarkSubmissionSent records the moment the registry accepted the
// submission as its received timestamp.
func (s *Store) MarkSubmissionSent(ctx context.Context, graph, submissionURI string, receivedAt time.Time) error {
	q := fmt.Sprintf(`%s
INSERT {
    GRAPH <%s> {
        <%s> schema:dateReceived "%s"^^xsd:dateTime .
    }
}
WHERE {
    GRAPH <%s> {
        <%s> a meb:Submission .
    }
}`, prefixes, graph, submissionURI, receivedAt.Format(xsdDateTimeLayout), graph, submissionURI)
	return s.client.Update(ctx, q)
}

// IncrementSubmissionAttempts adds one to the submission's failed-send
// counter. A submission at the maximum stays in the store untouched; it
// simply never matches the eligibility selection again.
func (s *Store) IncrementSubmissionAttempts(ctx context.Context, graph, submissionURI string) error {
	return s.incrementCounter(ctx, graph, submissionURI, "meb:Submission", "ext:failedSendingAttempts")
}
