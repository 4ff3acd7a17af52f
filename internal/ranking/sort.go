package ranking

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/comment-ranking-api/internal/models"
)

// SortKey selects the score a listing is ordered by
type SortKey string

const (
	SortByRating     SortKey = "rating"
	SortByTime       SortKey = "time"
	SortByUsefulness SortKey = "usefulness"
	SortByComposite  SortKey = "composite"
)

// SortKeys lists every supported key in display order
var SortKeys = []SortKey{SortByTime, SortByRating, SortByUsefulness, SortByComposite}

// Valid reports whether k is one of the supported keys
func (k SortKey) Valid() bool {
	switch k {
	case SortByRating, SortByTime, SortByUsefulness, SortByComposite:
		return true
	}
	return false
}

// ParseSortKey maps a query value to a SortKey. Unknown values fall back to composite.
func ParseSortKey(s string) SortKey {
	if k := SortKey(s); k.Valid() {
		return k
	}
	return SortByComposite
}

// Direction is the ordering direction of a listing
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection returns Ascending for "asc" (any case) and Descending for
// everything else, including the empty string.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Ascending)) {
		return Ascending
	}
	return Descending
}

// Scored pairs a comment with the value it was ordered by. For SortByTime the
// Score is the Unix time of the normalized timestamp.
type Scored struct {
	Comment *models.Comment
	Score   float64
	at      time.Time
}

// Rank scores every comment for key and returns them ordered by dir.
// Ties keep their input order. The input slice is not modified.
func Rank(comments []*models.Comment, key SortKey, dir Direction, now time.Time, w Weights) []Scored {
	scored := make([]Scored, len(comments))
	for i, c := range comments {
		scored[i] = score(c, key, now, w)
	}

	byTime := key == SortByTime
	slices.SortStableFunc(scored, func(a, b Scored) int {
		var r int
		if byTime {
			r = a.at.Compare(b.at)
		} else {
			r = cmp.Compare(a.Score, b.Score)
		}
		if dir != Ascending {
			return -r
		}
		return r
	})
	return scored
}

// Sort returns comments ordered by key and dir as a new slice.
func Sort(comments []*models.Comment, key SortKey, dir Direction, now time.Time, w Weights) []*models.Comment {
	ranked := Rank(comments, key, dir, now, w)
	out := make([]*models.Comment, len(ranked))
	for i, s := range ranked {
		out[i] = s.Comment
	}
	return out
}

func score(c *models.Comment, key SortKey, now time.Time, w Weights) Scored {
	s := Scored{Comment: c}
	switch key {
	case SortByRating:
		s.Score = RatingScore(c)
	case SortByUsefulness:
		s.Score = UsefulnessScore(c)
	case SortByTime:
		if c != nil {
			s.at, _ = NormalizeTimestamp(c.CreateTime)
		}
		s.Score = float64(s.at.Unix())
	default:
		s.Score = CompositeScore(c, now, w)
	}
	return s
}
