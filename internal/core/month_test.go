package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01", true},
		{"1999-12", true},
		{"2024-13", false},
		{"2024-1", false},
		{"24-01", false},
		{"2024/01", false},
		{"", false},
		{"2024-01-05", false},
	}
	for _, tc := range cases {
		k, err := ParseMonthKey(tc.in)
		if tc.ok {
			if err != nil || string(k) != tc.in {
				t.Fatalf("%q expected ok, got %q err=%v", tc.in, k, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidMonthKey) || !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected ErrInvalidMonthKey, got %v", tc.in, err)
		}
	}
}

func TestMustParseMonthKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for malformed key")
		}
	}()
	MustParseMonthKey("June")
}

func TestMonthKeyArithmetic(t *testing.T) {
	k := MustParseMonthKey("2024-01")
	if got := k.AddMonths(-1); got != "2023-12" {
		t.Fatalf("AddMonths(-1) = %s", got)
	}
	if got := k.AddMonths(14); got != "2025-03" {
		t.Fatalf("AddMonths(14) = %s", got)
	}
	if k.Year() != 2024 || k.Month() != time.January {
		t.Fatalf("Year/Month = %d/%d", k.Year(), k.Month())
	}
	if got := MustParseMonthKey("2024-06").Label(); got != "June 2024" {
		t.Fatalf("Label = %q", got)
	}
	if got := MustParseMonthKey("2024-06").ShortLabel(); got != "Jun 2024" {
		t.Fatalf("ShortLabel = %q", got)
	}
}

func TestMonthKeyContainsUsesTimeLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// 2023-12-31 20:00 UTC is already January 1st in IST.
	instant := time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)
	if !MustParseMonthKey("2023-12").Contains(instant) {
		t.Fatalf("expected December in UTC")
	}
	if !MustParseMonthKey("2024-01").Contains(instant.In(kolkata)) {
		t.Fatalf("expected January in IST")
	}
}

func TestMalformedStoredKeyRendersAsIs(t *testing.T) {
	k := MonthKey("Jan-2024")
	if k.Valid() {
		t.Fatal("Jan-2024 should not be valid")
	}
	if k.Label() != "Jan-2024" || k.ShortLabel() != "Jan-2024" {
		t.Fatalf("labels = %q / %q", k.Label(), k.ShortLabel())
	}
	if k.Year() != 0 || k.Month() != 0 {
		t.Fatalf("Year/Month = %d/%d, want zero", k.Year(), k.Month())
	}
	if !MonthKey("2024-06").Valid() || MonthKey("2024-06").Label() != "June 2024" {
		t.Fatal("valid key should keep its label")
	}
}
