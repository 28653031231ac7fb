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

// Package files provides durable attachment storage: a flat directory
// where each file is named by its content identifier plus the original
// extension.
package files

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Dir is the attachment storage root.
type Dir struct {
	root string
}

// NewDir opens (and creates if needed) the attachment storage root.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment folder %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Save writes an attachment buffer as {id}.{ext} and returns the
// detected MIME type of the content.
func (d *Dir) Save(id, ext string, buf []byte) (string, error) {
	name := id + "." + ext
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("write attachment %s: %w", name, err)
	}
	return mimetype.Detect(buf).String(), nil
}

// Resolve maps a storage-relative file path (the share:// pointer
// without its scheme) to an absolute path under the root.
func (d *Dir) Resolve(rel string) string {
	return filepath.Join(d.root, rel)
}
