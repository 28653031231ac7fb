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
	"testing"
	"time"
)

// TestNormalizeTimestamp verifies the supported source shapes all
// normalize to Brussels time at second precision.
func TestNormalizeTimestamp(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "naive local time",
			input: "2019-04-11T13:34:59",
			want:  "2019-04-11T13:34:59+02:00",
		},
		{
			name:  "naive with fractional seconds",
			input: "2019-04-11T13:34:59.897530",
			want:  "2019-04-11T13:34:59+02:00",
		},
		{
			name:  "utc zulu",
			input: "2019-01-15T10:00:00Z",
			want:  "2019-01-15T11:00:00+01:00",
		},
		{
			name:  "offset with colon",
			input: "2019-01-15T10:00:00+01:00",
			want:  "2019-01-15T10:00:00+01:00",
		},
		{
			name:  "offset without colon",
			input: "2019-01-15T10:00:00+0100",
			want:  "2019-01-15T10:00:00+01:00",
		},
		{
			name:  "offset with fractional seconds",
			input: "2019-07-01T08:30:15.123456+02:00",
			want:  "2019-07-01T08:30:15+02:00",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeTimestamp(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if formatted := FormatTimestamp(got); formatted != tc.want {
				t.Errorf("NormalizeTimestamp(%q) = %s, want %s", tc.input, formatted, tc.want)
			}
		})
	}
}

// TestNormalizeTimestamp_Idempotent verifies that normalizing an
// already-normalized value yields the same instant.
func TestNormalizeTimestamp_Idempotent(t *testing.T) {
	first, err := NormalizeTimestamp("2019-04-11T13:34:59.897530")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := NormalizeTimestamp(FormatTimestamp(first))
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}

	if !first.Equal(second) {
		t.Errorf("second pass = %v, want %v", second, first)
	}
}

// TestNormalizeTimestamp_Invalid verifies that an unparseable value is
// a validation error, not a transport error.
func TestNormalizeTimestamp_Invalid(t *testing.T) {
	_, err := NormalizeTimestamp("11/04/2019 13:34")
	if err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %T: %v", err, err)
	}
}

// TestNow verifies Now is second precision in the service timezone.
func TestNow(t *testing.T) {
	now := Now()
	if now.Nanosecond() != 0 {
		t.Errorf("Now() carries sub-second precision: %v", now)
	}
	if now.Location() != brussels {
		t.Errorf("Now() location = %v, want Europe/Brussels", now.Location())
	}
}

// TestFormatDate verifies the civil date rendering used in submission
// subjects.
func TestFormatDate(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in Brussels.
	instant := time.Date(2019, 1, 14, 23, 30, 0, 0, time.UTC)
	if got := FormatDate(instant); got != "2019-01-15" {
		t.Errorf("FormatDate = %q, want 2019-01-15", got)
	}
}
