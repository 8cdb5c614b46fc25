package core

import (
	"fmt"
	"time"
)

// MonthKey identifies one billing period in the form YYYY-MM.
// Keys sort chronologically when compared as strings.
type MonthKey string

const monthKeyLayout = "2006-01"

// ParseMonthKey validates s and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) != len(monthKeyLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthOf(t), nil
}

// MustParseMonthKey is like ParseMonthKey but panics on malformed input.
// A malformed key here is a caller contract violation, not user input.
func MustParseMonthKey(s string) MonthKey {
	k, err := ParseMonthKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseMonthKeys parses every entry of in, stopping at the first malformed key.
func ParseMonthKeys(in []string) ([]MonthKey, error) {
	out := make([]MonthKey, 0, len(in))
	for _, s := range in {
		k, err := ParseMonthKey(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// MonthOf returns the month key of t's calendar month, in t's own location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Valid reports whether k has the YYYY-MM form.
func (k MonthKey) Valid() bool {
	_, ok := k.parse(time.UTC)
	return ok
}

func (k MonthKey) parse(loc *time.Location) (time.Time, bool) {
	if len(k) != len(monthKeyLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(monthKeyLayout, string(k), loc)
	return t, err == nil
}

// Time returns midnight of the first day of the month in loc. It panics on a
// malformed key.
func (k MonthKey) Time(loc *time.Location) time.Time {
	t, ok := k.parse(loc)
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrInvalidMonthKey, string(k)))
	}
	return t
}

// Year returns the calendar year of the key, or 0 when it is malformed.
func (k MonthKey) Year() int {
	t, ok := k.parse(time.UTC)
	if !ok {
		return 0
	}
	return t.Year()
}

// Month returns the calendar month of the key, or 0 when it is malformed.
func (k MonthKey) Month() time.Month {
	t, ok := k.parse(time.UTC)
	if !ok {
		return 0
	}
	return t.Month()
}

// AddMonths returns the key n months after k (n may be negative).
func (k MonthKey) AddMonths(n int) MonthKey {
	t := k.Time(time.UTC)
	return MonthOf(time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// Contains reports whether t falls in this calendar month, judged in t's location.
func (k MonthKey) Contains(t time.Time) bool {
	return MonthOf(t) == k
}

// Label renders the key for month pickers, e.g. "June 2024". Malformed keys
// from stored records render as stored.
func (k MonthKey) Label() string {
	return k.format("January 2006")
}

// ShortLabel renders the key for ledger rows, e.g. "Jun 2024".
func (k MonthKey) ShortLabel() string {
	return k.format("Jan 2006")
}

func (k MonthKey) format(layout string) string {
	t, ok := k.parse(time.UTC)
	if !ok {
		return string(k)
	}
	return t.Format(layout)
}

func (k MonthKey) String() string {
	return string(k)
}
