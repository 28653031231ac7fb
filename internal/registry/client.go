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

// Package registry implements the client for the Kalliope registry API:
// fetching outbound postal items and their attachments, and posting
// replies, delivery confirmations and regulatory submissions. It also
// owns the transcoding between the registry's wire shapes and the
// internal model.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"
)

// pageSize is the number of items requested per page from the registry.
const pageSize = 10

// Config holds the endpoints and credentials for a registry client.
type Config struct {
	Username             string
	Password             string
	MessagesOutEndpoint  string
	MessagesInEndpoint   string
	ConfirmationEndpoint string
	SubmissionEndpoint   string
}

// Client talks to the Kalliope registry API over an authenticated
// session reused across a batch.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a registry client.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		cfg: cfg,
	}
}

// Poststuk is one outbound postal item as returned by the registry.
// Timestamp and reference field names vary between registry versions;
// all variants are carried and collapsed by the parser.
type Poststuk struct {
	URI          string `json:"uri"`
	Bestemmeling struct {
		URI string `json:"uri"`
	} `json:"bestemmeling"`
	Dossier *struct {
		URI string `json:"uri"`
	} `json:"dossier"`
	VerzendDatum     string          `json:"verzendDatum"`
	DatumBeschikbaar string          `json:"datumBeschikbaar"`
	CreatieDatum     string          `json:"creatieDatum"`
	Inhoud           *string         `json:"inhoud"`
	DossierNummer    string          `json:"dossierNummer"`
	ReferentieABB    string          `json:"referentieABB"`
	Betreft          string          `json:"betreft"`
	TypeCommunicatie string          `json:"typeCommunicatie"`
	Bijlages         []AttachmentRef `json:"bijlages"`
	Behandelaar      *CaseHandlerRef `json:"dossierbehandelaar"`
}

// AttachmentRef points to one attachment that can be fetched separately.
type AttachmentRef struct {
	URL  string `json:"url"`
	Naam string `json:"naam"`
}

// CaseHandlerRef identifies the registry-side case handler of an item.
type CaseHandlerRef struct {
	Identifier string `json:"identificator"`
	Email      string `json:"email"`
}

// poststukkenPage is one page of the outbound items listing.
type poststukkenPage struct {
	Poststukken []Poststuk `json:"poststukken"`
	Volgende    string     `json:"volgende"`
}

// FetchOutboundItems retrieves all outbound items available since the
// given time, following next-page links transparently. until and
// dossierTypes narrow the window when non-zero.
func (c *Client) FetchOutboundItems(ctx context.Context, since time.Time, until *time.Time, dossierTypes []string) ([]Poststuk, error) {
	params := url.Values{}
	params.Set("vanaf", FormatTimestamp(since))
	params.Set("aantal", fmt.Sprintf("%d", pageSize))
	if until != nil {
		params.Set("tot", FormatTimestamp(*until))
	}
	if len(dossierTypes) > 0 {
		params.Set("dossierTypes", strings.Join(dossierTypes, ","))
	}

	var items []Poststuk
	pageCount := 0
	for nextURL := c.cfg.MessagesOutEndpoint + "?" + params.Encode(); nextURL != ""; {
		slog.Debug("fetching poststukken page", "url", nextURL, "page", pageCount)

		page, err := c.fetchPage(ctx, nextURL)
		if err != nil {
			return nil, fmt.Errorf("fetch poststukken page %d: %w", pageCount, err)
		}
		pageCount++

		items = append(items, page.Poststukken...)
		nextURL = page.Volgende
	}

	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*poststukkenPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var page poststukkenPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode poststukken page: %w", errMalformed(err))
	}

	return &page, nil
}

// FetchAttachment downloads the binary content of one attachment.
func (c *Client) FetchAttachment(ctx context.Context, attachmentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}
	return buf, nil
}

// PostMessage sends a locally-authored reply as a multipart request: one
// JSON metadata part named "data" plus one part per attachment file.
// Every referenced file must be readable; a missing file fails the
// message.
func (c *Client) PostMessage(ctx context.Context, data MessageData, files []FilePart) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writeJSONPart(writer, "data", data); err != nil {
		return err
	}

	for _, file := range files {
		f, err := os.Open(file.Path)
		if err != nil {
			return fmt.Errorf("open attachment file %s: %w", file.Path, err)
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, file.Name))
		header.Set("Content-Type", file.MimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			f.Close()
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return fmt.Errorf("write file part %s: %w", file.Name, err)
		}
		f.Close()
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	return c.post(ctx, c.cfg.MessagesInEndpoint, writer.FormDataContentType(), &body)
}

// PostConfirmation sends the delivery confirmation handshake for one
// stored message.
func (c *Client) PostConfirmation(ctx context.Context, conf Confirmation) error {
	buf, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}
	return c.post(ctx, c.cfg.ConfirmationEndpoint, "application/json", bytes.NewReader(buf))
}

// PostSubmission sends a regulatory submission. Submissions carry no
// attachments; the payload is a single JSON metadata part.
func (c *Client) PostSubmission(ctx context.Context, data SubmissionData) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeJSONPart(writer, "data", data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}
	return c.post(ctx, c.cfg.SubmissionEndpoint, writer.FormDataContentType(), &body)
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// writeJSONPart adds a named JSON part with an explicit Content-Type
// header, which the registry requires for every parameter.
func writeJSONPart(writer *multipart.Writer, name string, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s part: %w", name, err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, name))
	header.Set("Content-Type", "application/json")
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", name, err)
	}
	if _, err := part.Write(buf); err != nil {
		return fmt.Errorf("write %s part: %w", name, err)
	}
	return nil
}
