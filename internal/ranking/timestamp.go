package ranking

import (
	"time"
)

// MinTime is the timestamp given to comments whose createTime cannot be read.
// It orders before every real timestamp.
var MinTime = time.Time{}

// fixedLayout is the legacy storage format tried after the ISO-8601 layouts.
const fixedLayout = "2006-01-02 15:04:05"

// isoLayouts are the ISO-8601 shapes accepted for createTime. A trailing "Z"
// matches the Z07:00 element, so it reads as +00:00. Layouts without an
// offset parse as UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeTimestamp converts a comment's createTime into a time.Time.
// It accepts time.Time, *time.Time and strings in ISO-8601 or
// "YYYY-MM-DD HH:MM:SS" form. Anything else yields MinTime and false.
func NormalizeTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return MinTime, false
		}
		return *t, true
	case string:
		return parseTimestamp(t)
	default:
		return MinTime, false
	}
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return MinTime, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(fixedLayout, s); err == nil {
		return t, true
	}
	return MinTime, false
}
