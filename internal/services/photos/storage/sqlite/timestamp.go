package sqlite

import (
	"fmt"
	"time"
)

// timestampLayout matches what SQLite's datetime functions produce, with
// fractional seconds.
const timestampLayout = "2006-01-02 15:04:05.000000000"

var timestampParseLayouts = []string{
	timestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

// parseTimestamp accepts whatever the driver hands back for a TIMESTAMP
// column: a parsed time, text, or unix milliseconds.
func parseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case []byte:
		return parseTimestampText(string(v))
	case string:
		return parseTimestampText(v)
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is null")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func parseTimestampText(value string) (time.Time, error) {
	for _, layout := range timestampParseLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", value)
}
