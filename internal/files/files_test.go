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

package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSave verifies the file lands under the root with the expected
// name and that the MIME type is sniffed from content, not extension.
func TestSave(t *testing.T) {
	root := t.TempDir()
	dir, err := NewDir(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mimeType, err := dir.Save("abc123", "pdf", []byte("%PDF-1.4\nfake body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mimeType != "application/pdf" {
		t.Errorf("mime type = %q, want application/pdf", mimeType)
	}

	stored, err := os.ReadFile(filepath.Join(root, "abc123.pdf"))
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(stored) != "%PDF-1.4\nfake body" {
		t.Errorf("stored content = %q", stored)
	}
}

// TestSave_SniffsContent verifies a lying extension does not fool the
// detection.
func TestSave_SniffsContent(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mimeType, err := dir.Save("notes", "pdf", []byte("gewoon platte tekst"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(mimeType, "text/plain") {
		t.Errorf("mime type = %q, want text/plain for text content", mimeType)
	}
}

// TestNewDir_CreatesRoot verifies a missing root is created.
func TestNewDir_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "attachments")
	if _, err := NewDir(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

// TestResolve verifies storage-relative paths resolve under the root.
func TestResolve(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := dir.Resolve("abc123.pdf")
	if filepath.Base(got) != "abc123.pdf" || !filepath.IsAbs(got) {
		t.Errorf("Resolve = %q, want absolute path ending in abc123.pdf", got)
	}
}
