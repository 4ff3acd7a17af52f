package ranking

import (
	"time"

	"github.com/comment-ranking-api/internal/models"
)

// DefaultWindowDays is the trailing window used by "recent comments" views
const DefaultWindowDays = 90

// maxWindowDays keeps days*24h inside time.Duration
const maxWindowDays = 100000

// FilterByWindow keeps the comments created within the last days days
// relative to now. Comments without a readable timestamp are dropped.
func FilterByWindow(comments []*models.Comment, days int, now time.Time) []*models.Comment {
	cutoff := windowCutoff(now, days)

	filtered := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		t, ok := NormalizeTimestamp(c.CreateTime)
		if !ok {
			continue
		}
		if !t.Before(cutoff) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func windowCutoff(now time.Time, days int) time.Time {
	if days > maxWindowDays {
		days = maxWindowDays
	}
	if days < -maxWindowDays {
		days = -maxWindowDays
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
