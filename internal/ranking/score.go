package ranking

import (
	"math"
	"time"

	"github.com/comment-ranking-api/internal/models"
)

// recencyDecayDays is the e-folding constant of the recency decay.
// A 30 day old comment scores e^-1; past ~90 days the score is negligible.
const recencyDecayDays = 30.0

// Weights controls the blend used by the composite score
type Weights struct {
	Rating  float64 `yaml:"rating" json:"rating"`
	Recency float64 `yaml:"recency" json:"recency"`
}

// DefaultWeights is the default display order: 70% rating, 30% recency
var DefaultWeights = Weights{Rating: 0.7, Recency: 0.3}

// RatingScore returns the raw rating; a missing rating counts as 0.
func RatingScore(c *models.Comment) float64 {
	if c == nil {
		return 0
	}
	return float64(c.Rating)
}

// UsefulnessScore returns the helpful-vote count; missing counts as 0.
func UsefulnessScore(c *models.Comment) float64 {
	if c == nil {
		return 0
	}
	return float64(c.Usefulness)
}

// NormalizedRating maps a 1..5 rating onto [0,1]. Out of range ratings map to 0.
func NormalizedRating(rating int) float64 {
	if rating < models.MinRating || rating > models.MaxRating {
		return 0
	}
	return float64(rating-models.MinRating) / float64(models.MaxRating-models.MinRating)
}

// RecencyScore returns exp(-days/30) clamped to [0,1], where days is the
// number of whole days between the comment's createTime and now.
// Unreadable timestamps score 0.
func RecencyScore(c *models.Comment, now time.Time) float64 {
	if c == nil {
		return 0
	}
	t, ok := NormalizeTimestamp(c.CreateTime)
	if !ok {
		return 0
	}
	return recencyAt(t, now)
}

func recencyAt(t, now time.Time) float64 {
	days := math.Floor(now.Sub(t).Hours() / 24)
	return clamp01(math.Exp(-days / recencyDecayDays))
}

// CompositeScore blends the normalized rating and recency using w.
func CompositeScore(c *models.Comment, now time.Time, w Weights) float64 {
	if c == nil {
		return 0
	}
	return w.Rating*NormalizedRating(c.Rating) + w.Recency*RecencyScore(c, now)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
