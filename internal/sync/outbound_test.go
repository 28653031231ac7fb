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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lblod/kalliope-sync/internal/registry"
	"github.com/lblod/kalliope-sync/internal/store"
)

// fakePoster implements outboundRegistry.
type fakePoster struct {
	data  []registry.MessageData
	files [][]registry.FilePart
	err   error
}

func (f *fakePoster) PostMessage(_ context.Context, data registry.MessageData, files []registry.FilePart) error {
	if f.err != nil {
		return f.err
	}
	f.data = append(f.data, data)
	f.files = append(f.files, files)
	return nil
}

// fakeResolver implements fileResolver against a fixed root.
type fakeResolver struct {
	root string
}

func (f *fakeResolver) Resolve(rel string) string {
	return filepath.Join(f.root, rel)
}

func outboundMessage(uri string) store.OutboundMessage {
	return store.OutboundMessage{
		Graph:           store.MessagesGraph("7c35ce8d"),
		URI:             uri,
		ConversationURI: "http://data.lblod.info/id/conversaties/c1",
		ReferenceID:     "ABB-2019-001",
		Subject:         "Besluit gemeenteraad",
		Body:            "Zie bijgevoegde reactie.",
		Sender:          "http://data.lblod.info/id/bestuurseenheden/7c35ce8d",
		SentAt:          time.Date(2019, 4, 12, 9, 0, 0, 0, time.UTC),
	}
}

func newTestSender(reg *fakePoster, st *fakeStore) *Sender {
	return NewSender(SenderConfig{
		Registry:     reg,
		Store:        st,
		Files:        &fakeResolver{root: "/data/files"},
		RecipientURI: abbURI,
		MaxAttempts:  3,
	})
}

// TestSender_Success verifies the payload shape and the sent marker.
func TestSender_Success(t *testing.T) {
	st := newFakeStore()
	m := outboundMessage("http://data.lblod.info/id/berichten/b2")
	st.unsent = []store.OutboundMessage{m}
	st.originals[m.ConversationURI] = "http://kalliope.test/poststukken/1"
	st.msgAttachments[m.URI] = []store.AttachmentFile{
		{Name: "reactie.pdf", Path: "abc123.pdf", MimeType: "application/pdf"},
	}
	reg := &fakePoster{}

	if err := newTestSender(reg, st).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reg.data) != 1 {
		t.Fatalf("expected 1 posted message, got %d", len(reg.data))
	}
	data := reg.data[0]
	if data.Betreft != "Reactie op Besluit gemeenteraad" {
		t.Errorf("betreft = %q, want the reply prefix applied", data.Betreft)
	}
	if data.OrigineelBerichtURI != "http://kalliope.test/poststukken/1" {
		t.Errorf("origineelBerichtUri = %q", data.OrigineelBerichtURI)
	}
	if data.AfzenderURI != m.Sender {
		t.Errorf("afzenderUri = %q", data.AfzenderURI)
	}

	if len(reg.files[0]) != 1 || reg.files[0][0].Path != filepath.Join("/data/files", "abc123.pdf") {
		t.Errorf("file parts = %+v, want resolved storage path", reg.files[0])
	}

	if len(st.markedSent) != 1 || st.markedSent[0] != m.URI {
		t.Errorf("markedSent = %v", st.markedSent)
	}
	if len(st.sendIncrements) != 0 {
		t.Error("counter incremented on success")
	}
}

// TestSender_FirstMessageHasNoOriginal verifies a conversation opened
// locally omits the correlation URI.
func TestSender_FirstMessageHasNoOriginal(t *testing.T) {
	st := newFakeStore()
	m := outboundMessage("http://data.lblod.info/id/berichten/b1")
	st.unsent = []store.OutboundMessage{m}
	st.originals[m.ConversationURI] = m.URI
	reg := &fakePoster{}

	if err := newTestSender(reg, st).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reg.data[0].OrigineelBerichtURI != "" {
		t.Errorf("origineelBerichtUri = %q, want empty when the message opens the conversation",
			reg.data[0].OrigineelBerichtURI)
	}
}

// TestSender_FailureIncrements verifies a rejected message bumps the
// counter and records a sync error without marking it sent.
func TestSender_FailureIncrements(t *testing.T) {
	st := newFakeStore()
	m := outboundMessage("http://data.lblod.info/id/berichten/b2")
	st.unsent = []store.OutboundMessage{m}
	st.originals[m.ConversationURI] = "http://kalliope.test/poststukken/1"
	reg := &fakePoster{err: errors.New("registry 500")}

	if err := newTestSender(reg, st).Run(context.Background()); err != nil {
		t.Fatalf("per-item failures must not abort the run: %v", err)
	}

	if len(st.markedSent) != 0 {
		t.Error("failed message marked sent")
	}
	if len(st.sendIncrements) != 1 || st.sendIncrements[0] != m.URI {
		t.Errorf("sendIncrements = %v", st.sendIncrements)
	}
	if len(st.syncErrors) != 1 || st.syncErrors[0] != m.URI {
		t.Errorf("syncErrors = %v", st.syncErrors)
	}
}
