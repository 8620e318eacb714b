package cloudevents

import (
	"time"

	"github.com/spf13/cast"
)

// Time format constants for CloudEvents.
const (
	// TimeFormat is the standard CloudEvents time format (RFC3339).
	TimeFormat = time.RFC3339

	// TimeFormatNano is the RFC3339 format with nanosecond precision.
	TimeFormatNano = time.RFC3339Nano
)

// layouts accepted by ParseTime after the RFC3339 variants.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses a time string in RFC3339 (with or without fraction),
// a zone-less date-time or a bare date.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormatNano, s); err == nil {
		return t, nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Layout:  TimeFormat,
		Value:   s,
		Message: ": cannot parse as CloudEvents time",
	}
}

// TimeFrom converts a decoded JSON value into a time. Strings go through
// ParseTime, numbers are read as Unix seconds and time values pass through.
func TimeFrom(v any) (time.Time, error) {
	switch value := v.(type) {
	case time.Time:
		return value, nil
	case *time.Time:
		if value == nil {
			return time.Time{}, &time.ParseError{Layout: TimeFormat, Message: ": nil time"}
		}
		return *value, nil
	case string:
		return ParseTime(value)
	case bool, nil:
		return time.Time{}, &time.ParseError{
			Layout:  TimeFormat,
			Value:   cast.ToString(v),
			Message: ": unsupported time value",
		}
	}

	seconds, err := cast.ToInt64E(v)
	if err != nil {
		return time.Time{}, &time.ParseError{
			Layout:  TimeFormat,
			Value:   cast.ToString(v),
			Message: ": unsupported time value",
		}
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// FormatTime formats a time value for CloudEvents. The zero time formats as
// an empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}
