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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		Username:             "loket",
		Password:             "secret",
		MessagesOutEndpoint:  serverURL + "/poststukken-uit",
		MessagesInEndpoint:   serverURL + "/poststukken-in",
		ConfirmationEndpoint: serverURL + "/poststukken-uit/confirm",
		SubmissionEndpoint:   serverURL + "/inzendingen",
	})
}

// TestFetchOutboundItems_Pagination verifies that next-page links are
// followed until exhausted and the window parameters are passed along.
func TestFetchOutboundItems_Pagination(t *testing.T) {
	var sawVanaf, sawAuth bool

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/poststukken-uit", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vanaf") != "" {
			sawVanaf = true
		}
		if user, pass, ok := r.BasicAuth(); ok && user == "loket" && pass == "secret" {
			sawAuth = true
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"poststukken": []map[string]string{{"uri": "http://kalliope.test/poststukken/1"}},
			"volgende":    server.URL + "/page2",
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"poststukken": []map[string]string{{"uri": "http://kalliope.test/poststukken/2"}},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL)
	items, err := client.FetchOutboundItems(context.Background(), time.Now().Add(-24*time.Hour), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items across pages, got %d", len(items))
	}
	if items[1].URI != "http://kalliope.test/poststukken/2" {
		t.Errorf("second item URI = %q", items[1].URI)
	}
	if !sawVanaf {
		t.Error("vanaf parameter not sent")
	}
	if !sawAuth {
		t.Error("basic auth credentials not sent")
	}
}

// TestFetchOutboundItems_StatusError verifies a non-OK response
// surfaces as a StatusError.
func TestFetchOutboundItems_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchOutboundItems(context.Background(), time.Now(), nil, nil)
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", statusErr.StatusCode)
	}
}

// TestFetchOutboundItems_MalformedResponse verifies an undecodable 200
// body maps to ErrMalformedResponse.
func TestFetchOutboundItems_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchOutboundItems(context.Background(), time.Now(), nil, nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

// TestPostMessage verifies the multipart shape: a JSON "data" part plus
// one named file part per attachment.
func TestPostMessage(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "abc123.pdf")
	if err := os.WriteFile(filePath, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotData MessageData
	var gotFileName, gotFileContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("data")), &gotData); err != nil {
			t.Errorf("decode data part: %v", err)
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			t.Errorf("missing files part: %v", err)
		} else {
			defer file.Close()
			gotFileName = header.Filename
			buf := make([]byte, header.Size)
			file.Read(buf)
			gotFileContent = string(buf)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.PostMessage(context.Background(),
		MessageData{
			URI:          "http://data.lblod.info/id/berichten/1",
			AfzenderURI:  "http://data.lblod.info/id/bestuurseenheden/7c35ce8d",
			Betreft:      "Reactie op Besluit gemeenteraad",
			VerzendDatum: "2019-04-11T13:34:59+02:00",
		},
		[]FilePart{{Name: "besluit.pdf", Path: filePath, MimeType: "application/pdf"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotData.Betreft != "Reactie op Besluit gemeenteraad" {
		t.Errorf("data part betreft = %q", gotData.Betreft)
	}
	if gotFileName != "besluit.pdf" {
		t.Errorf("file part name = %q, want besluit.pdf", gotFileName)
	}
	if gotFileContent != "%PDF-1.4 test" {
		t.Errorf("file part content = %q", gotFileContent)
	}
}

// TestPostMessage_MissingFile verifies a reply referencing an
// unreadable attachment fails without hitting the registry.
func TestPostMessage_MissingFile(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.PostMessage(context.Background(),
		MessageData{URI: "http://data.lblod.info/id/berichten/1"},
		[]FilePart{{Name: "gone.pdf", Path: "/nonexistent/gone.pdf"}},
	)
	if err == nil {
		t.Fatal("expected error for missing attachment file")
	}
	if requests != 0 {
		t.Errorf("registry was called %d times, want 0", requests)
	}
}

// TestPostConfirmation verifies the JSON handshake payload.
func TestPostConfirmation(t *testing.T) {
	var got Confirmation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.PostConfirmation(context.Background(), Confirmation{
		URIPoststukUit:       "http://kalliope.test/poststukken/1",
		DatumBeschikbaarheid: "2019-04-11T13:34:59+02:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.URIPoststukUit != "http://kalliope.test/poststukken/1" {
		t.Errorf("uriPoststukUit = %q", got.URIPoststukUit)
	}
	if got.DatumBeschikbaarheid != "2019-04-11T13:34:59+02:00" {
		t.Errorf("datumBeschikbaarheid = %q", got.DatumBeschikbaarheid)
	}
}

// TestPostSubmission verifies the submission multipart carries the JSON
// data part.
func TestPostSubmission(t *testing.T) {
	var got SubmissionData
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		json.Unmarshal([]byte(r.FormValue("data")), &got)
	}))
	defer server.Close()

	year := 2019
	client := testClient(server.URL)
	err := client.PostSubmission(context.Background(), SubmissionData{
		URI:         "http://data.lblod.info/submissions/1",
		AfzenderURI: "http://data.lblod.info/id/bestuurseenheden/7c35ce8d",
		Betreft:     "Budget 2019-04-11",
		Boekjaar:    &year,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.URI != "http://data.lblod.info/submissions/1" {
		t.Errorf("uri = %q", got.URI)
	}
	if got.Boekjaar == nil || *got.Boekjaar != 2019 {
		t.Errorf("boekjaar = %v, want 2019", got.Boekjaar)
	}
}
