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
	"fmt"
	"time"
)

// All timestamps are normalized to one civil timezone at second
// precision before storage or comparison. The registry's fractional
// seconds and offset notations vary across API versions, so every
// supported shape funnels through NormalizeTimestamp.

const timestampLayout = "2006-01-02T15:04:05-07:00"

var brussels = mustLoadLocation("Europe/Brussels")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// timestampLayouts are the source shapes the registry has been observed
// to produce: Z or ±hh:mm offsets, ±hhmm offsets without a colon, and
// offset-less local time, each with or without (truncated) fractional
// seconds.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
}

// NormalizeTimestamp parses a registry timestamp and normalizes it to
// the Brussels timezone truncated to whole seconds. Normalization is
// idempotent: feeding its own output back yields the same instant.
func NormalizeTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, brussels)
		if err != nil {
			continue
		}
		return t.In(brussels).Truncate(time.Second), nil
	}
	return time.Time{}, &ValidationError{Reason: fmt.Sprintf("unparseable timestamp %q", value)}
}

// Now returns the current time in the normalized form used everywhere.
func Now() time.Time {
	return time.Now().In(brussels).Truncate(time.Second)
}

// FormatTimestamp renders a normalized timestamp in the shape used for
// both API parameters and stored literals.
func FormatTimestamp(t time.Time) string {
	return t.In(brussels).Format(timestampLayout)
}

// FormatDate renders the civil date of an instant, used in
// human-readable subjects.
func FormatDate(t time.Time) string {
	return t.In(brussels).Format("2006-01-02")
}
