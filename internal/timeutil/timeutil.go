package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDateFormat = errors.New("published date has invalid format")

const (
	// Object keys and success-marker bodies embed zero-padded timestamps so
	// that byte order equals chronological order.
	lexicographicTimestampLayout = "2006/01/02/15/04/05"
	lexicographicDateLayout      = "2006/01/02"

	publishedDateLayout = "2006-01-02T15:04:05"
	publishedDateSuffix = "+00:00"
)

// PublishedDatePattern is the canonical form every stored dt_published must
// match: ISO-8601 UTC with second precision.
var PublishedDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\+00:00$`)

// ToLexicographic renders t as YYYY/MM/DD/HH/MM/SS/microseconds.
func ToLexicographic(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%06d", t.Format(lexicographicTimestampLayout), t.Nanosecond()/1000)
}

// FromLexicographic parses a string produced by ToLexicographic.
func FromLexicographic(s string) (time.Time, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	base, err := time.Parse(lexicographicTimestampLayout, s[:idx])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	micros, err := strconv.Atoi(s[idx+1:])
	if err != nil || micros < 0 || micros > 999999 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return base.Add(time.Duration(micros) * time.Microsecond).UTC(), nil
}

// ToLexicographicDate renders t as YYYY/MM/DD.
func ToLexicographicDate(t time.Time) string {
	return t.UTC().Format(lexicographicDateLayout)
}

// StandardizePublishedDate converts an aggregator-specific UTC timestamp
// string into the canonical published-date form. The input is validated
// against the aggregator's expected pattern first; fractional seconds are
// dropped from the output.
func StandardizePublishedDate(dtStr string, expected *regexp.Regexp) (string, error) {
	if !expected.MatchString(dtStr) {
		return "", fmt.Errorf("%w: %q does not match %s", ErrInvalidDateFormat, dtStr, expected)
	}
	base := strings.SplitN(dtStr, ".", 2)[0]
	base = strings.TrimSuffix(base, "Z")
	t, err := time.Parse(publishedDateLayout, base)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, dtStr)
	}
	return t.Format(publishedDateLayout) + publishedDateSuffix, nil
}

// ParsePublishedDate parses a canonical dt_published string.
func ParsePublishedDate(dtStr string) (time.Time, error) {
	if !PublishedDatePattern.MatchString(dtStr) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, dtStr)
	}
	t, err := time.Parse(publishedDateLayout, strings.TrimSuffix(dtStr, publishedDateSuffix))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, dtStr)
	}
	return t.UTC(), nil
}
