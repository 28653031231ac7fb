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

// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultABBURI is the organization URI the sync service acts for. All
// locally-authored replies select on this recipient.
const DefaultABBURI = "http://data.lblod.info/id/bestuurseenheden/141d9d6b-54af-4d17-b313-8d1c30bc3f5b"

// Config holds all configuration for the sync service.
type Config struct {
	// Registry API
	RegistryUsername     string
	RegistryPassword     string
	MessagesOutEndpoint  string // poststukken-uit (fetch)
	MessagesInEndpoint   string // poststukken-in (send)
	ConfirmationEndpoint string
	SubmissionEndpoint   string

	// Triple store
	SparqlQueryEndpoint  string
	SparqlUpdateEndpoint string

	// Delivery bookkeeping
	MaxSendingAttempts      int
	MaxConfirmationAttempts int
	MaxMessageAgeDays       int

	// Job schedules (standard 5-field cron expressions)
	MessagesCronPattern      string
	ConfirmationsCronPattern string
	SubmissionsCronPattern   string

	// Local storage
	AttachmentsFolderPath string
	ExclusionRulesPath    string

	// Submission URL bases
	SubmissionBaseURL string
	WorshipBaseURL    string

	// Own identity
	ABBURI string

	// Server (health check only)
	Port int
}

// Load reads configuration from environment variables. Endpoints and
// credentials are required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		RegistryUsername:     os.Getenv("KALLIOPE_API_USERNAME"),
		RegistryPassword:     os.Getenv("KALLIOPE_API_PASSWORD"),
		MessagesOutEndpoint:  os.Getenv("KALLIOPE_PS_UIT_ENDPOINT"),
		MessagesInEndpoint:   os.Getenv("KALLIOPE_PS_IN_ENDPOINT"),
		ConfirmationEndpoint: os.Getenv("KALLIOPE_PS_UIT_CONFIRMATION_ENDPOINT"),
		SubmissionEndpoint:   firstNonEmpty(os.Getenv("KALLIOPE_INZENDING_ENDPOINT"), os.Getenv("KALLIOPE_PS_IN_ENDPOINT")),

		SparqlQueryEndpoint:  envOrDefault("SPARQL_QUERY_ENDPOINT", "http://database:8890/sparql"),
		SparqlUpdateEndpoint: envOrDefault("SPARQL_UPDATE_ENDPOINT", "http://database:8890/sparql"),

		MaxSendingAttempts:      envOrDefaultInt("MAX_SENDING_ATTEMPTS", 3),
		MaxConfirmationAttempts: envOrDefaultInt("MAX_CONFIRMATION_ATTEMPTS", 20),
		MaxMessageAgeDays:       envOrDefaultInt("MAX_MESSAGE_AGE", 3),

		MessagesCronPattern:      envOrDefault("BERICHTEN_CRON_PATTERN", "*/15 * * * *"),
		ConfirmationsCronPattern: envOrDefault("BERICHTEN_IN_CONFIRMATION_CRON_PATTERN", "*/15 * * * *"),
		SubmissionsCronPattern:   envOrDefault("INZENDINGEN_CRON_PATTERN", "*/15 * * * *"),

		AttachmentsFolderPath: envOrDefault("ATTACHMENTS_FOLDER_PATH", "/data/files"),
		ExclusionRulesPath:    os.Getenv("EXCLUSION_RULES_PATH"),

		SubmissionBaseURL: os.Getenv("INZENDING_BASE_URL"),
		WorshipBaseURL:    os.Getenv("EREDIENSTEN_BASE_URL"),

		ABBURI: envOrDefault("ABB_URI", DefaultABBURI),

		Port: envOrDefaultInt("PORT", 8080),
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"KALLIOPE_API_USERNAME", cfg.RegistryUsername},
		{"KALLIOPE_API_PASSWORD", cfg.RegistryPassword},
		{"KALLIOPE_PS_UIT_ENDPOINT", cfg.MessagesOutEndpoint},
		{"KALLIOPE_PS_IN_ENDPOINT", cfg.MessagesInEndpoint},
		{"KALLIOPE_PS_UIT_CONFIRMATION_ENDPOINT", cfg.ConfirmationEndpoint},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
