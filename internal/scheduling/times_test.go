/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "testing"

func TestMinutesOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:05", 545, false},
		{"23:59", 1439, false},
		{"24:10", 1450, false}, // past-midnight values round-trip
		{"9:00", 540, false},
		{"", 0, true},
		{"09", 0, true},
		{"09:60", 0, true},
		{"-1:00", 0, true},
		{"ab:cd", 0, true},
	}
	for _, c := range cases {
		got, err := MinutesOfDay(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("MinutesOfDay(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("MinutesOfDay(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("MinutesOfDay(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(545); got != "09:05" {
		t.Errorf("FormatMinutes(545) = %q", got)
	}
	if got := FormatMinutes(1450); got != "24:10" {
		t.Errorf("FormatMinutes(1450) = %q", got)
	}
	if got := FormatMinutes(-5); got != "00:00" {
		t.Errorf("FormatMinutes(-5) = %q", got)
	}
}

func TestAddMinutes(t *testing.T) {
	got, err := AddMinutes("09:00", 75)
	if err != nil {
		t.Fatalf("AddMinutes: %v", err)
	}
	if got != "10:15" {
		t.Errorf("AddMinutes(09:00, 75) = %q", got)
	}
	if _, err := AddMinutes("bogus", 5); err == nil {
		t.Error("expected error for malformed input")
	}
}
