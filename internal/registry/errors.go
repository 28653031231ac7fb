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
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrMalformedResponse marks a response the registry returned with a 2xx
// status but an undecodable body. Unlike transport errors this is not
// expected to resolve by retrying.
var ErrMalformedResponse = errors.New("malformed registry response")

func errMalformed(cause error) error {
	return fmt.Errorf("%w: %v", ErrMalformedResponse, cause)
}

// StatusError is a non-OK response from the registry. These are
// transport-level failures: the next scheduled run retries them.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned HTTP %d: %s", e.StatusCode, e.Body)
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// ValidationError marks an item that failed validation during parsing.
// Such items are skipped permanently, not retried: their content will
// not change between polls.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
