package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the format bookmarks are written in.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

var timestampLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp accepts ISO-8601 strings, compact dates and epoch milliseconds.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}, fmt.Errorf("parse epoch %q: %w", t, err)
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case time.Time:
		return t.UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
