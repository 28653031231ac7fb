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

// Package store provides the gateway to the SPARQL triple store: a thin
// protocol client (select / ask / update) and the typed operations the
// sync engine performs against the graph data.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Term is a single RDF term in a query solution.
type Term struct {
	Type  string `json:"type"` // "uri", "literal", "typed-literal", "bnode"
	Value string `json:"value"`
}

// Binding maps variable names to terms for one query solution.
type Binding map[string]Term

// selectResponse mirrors the application/sparql-results+json shape for
// both SELECT and ASK results.
type selectResponse struct {
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

// Client talks the SPARQL 1.1 protocol to the triple store endpoints.
type Client struct {
	httpClient     *http.Client
	queryEndpoint  string
	updateEndpoint string
}

// NewClient creates a store client for the given query and update
// endpoints.
func NewClient(queryEndpoint, updateEndpoint string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		queryEndpoint:  queryEndpoint,
		updateEndpoint: updateEndpoint,
	}
}

// Select runs a SELECT query and returns its solution bindings.
func (c *Client) Select(ctx context.Context, query string) ([]Binding, error) {
	resp, err := c.run(ctx, c.queryEndpoint, "query", query)
	if err != nil {
		return nil, err
	}
	return resp.Results.Bindings, nil
}

// Ask runs an ASK query and returns its boolean result.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	resp, err := c.run(ctx, c.queryEndpoint, "query", query)
	if err != nil {
		return false, err
	}
	if resp.Boolean == nil {
		return false, fmt.Errorf("store returned no boolean for ASK query")
	}
	return *resp.Boolean, nil
}

// Update runs an update (INSERT/DELETE) against the update endpoint.
func (c *Client) Update(ctx context.Context, update string) error {
	form := url.Values{}
	form.Set("update", update)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("store update returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) run(ctx context.Context, endpoint, param, query string) (*selectResponse, error) {
	form := url.Values{}
	form.Set(param, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("store query returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed selectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode store response: %w", err)
	}

	return &parsed, nil
}
