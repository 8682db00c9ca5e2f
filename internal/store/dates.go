package store

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical date-key format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date-key.
func ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	t, err := time.Parse(DateLayout, date)
	if err != nil || t.Format(DateLayout) != date {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalid, date)
	}
	return t, nil
}

func validateDate(date string) error {
	_, err := ParseDate(date)
	return err
}

// AddDays shifts a date-key by n calendar days. Invalid keys are returned as is.
func AddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

func PrevDate(date string) string { return AddDays(date, -1) }

func NextDate(date string) string { return AddDays(date, 1) }

// ResolveDate turns user input (a date-key, "today", "yesterday", "tomorrow")
// into a date-key relative to today.
func ResolveDate(input, today string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "today", "now":
		return today, nil
	case "yesterday", "prev":
		return PrevDate(today), nil
	case "tomorrow", "next":
		return NextDate(today), nil
	}
	if err := validateDate(input); err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
