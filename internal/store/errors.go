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
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CreateSyncError appends a sync error audit record to the public graph.
// itemURI may be empty when the failure is not tied to a single item
// (e.g. a batch fetch failure).
func (s *Store) CreateSyncError(ctx context.Context, itemURI, message string, cause error) error {
	id := uuid.New().String()
	errorURI := fmt.Sprintf("http://data.lblod.info/id/kalliope-sync-errors/%s", id)

	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}

	var subject string
	if itemURI != "" {
		subject = fmt.Sprintf(` ;
            dct:subject <%s>`, itemURI)
	}

	q := fmt.Sprintf(`%s
INSERT DATA {
    GRAPH <%s> {
        <%s> a ext:KalliopeSyncError ;
            mu:uuid "%s" ;
            dct:created "%s"^^xsd:dateTime ;
            ext:errorMessage "%s" ;
            ext:errorCause "%s"%s .
    }
}`, prefixes, PublicGraph,
		errorURI, id,
		time.Now().Format(xsdDateTimeLayout),
		escapeLiteral(message),
		escapeLiteral(causeText),
		subject)
	return s.client.Update(ctx, q)
}

// LogSyncError is the best-effort sink around CreateSyncError: a failure
// to write the audit record is itself only logged, never propagated.
// Call sites use this at item-processing boundaries where the original
// error has already been handled.
func (s *Store) LogSyncError(ctx context.Context, itemURI, message string, cause error) {
	slog.Error(message, "item", itemURI, "error", cause)
	if err := s.CreateSyncError(ctx, itemURI, message, cause); err != nil {
		slog.Warn("failed to write sync error record, continuing",
			"item", itemURI,
			"original_error", cause,
			"error", err,
		)
	}
}
