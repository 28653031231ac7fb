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

// MessageData is the JSON metadata block of an outbound reply.
type MessageData struct {
	URI                 string `json:"uri"`
	AfzenderURI         string `json:"afzenderUri"`
	OrigineelBerichtURI string `json:"origineelBerichtUri,omitempty"`
	Betreft             string `json:"betreft"`
	Inhoud              string `json:"inhoud"`
	DossierURI          string `json:"dossierUri,omitempty"`
	VerzendDatum        string `json:"verzendDatum"`
}

// FilePart references one attachment file to include in an outbound
// reply. Path is the absolute location in durable per-message storage.
type FilePart struct {
	Name     string
	Path     string
	MimeType string
}

// Confirmation correlates a stored message with its delivery timestamp
// for the confirmation handshake.
type Confirmation struct {
	URIPoststukUit       string `json:"uriPoststukUit"`
	DatumBeschikbaarheid string `json:"datumBeschikbaarheid"`
}

// SubmissionData is the JSON metadata block of a regulatory submission.
type SubmissionData struct {
	URI               string `json:"uri"`
	AfzenderURI       string `json:"afzenderUri"`
	Betreft           string `json:"betreft"`
	URLToezicht       string `json:"urlToezicht"`
	TypePoststuk      string `json:"typePoststuk"`
	TypeMelding       string `json:"typeMelding"`
	DatumVanVerzenden string `json:"datumVanVerzenden"`
	Boekjaar          *int   `json:"boekjaar,omitempty"`
}
