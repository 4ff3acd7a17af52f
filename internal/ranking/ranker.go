// Package ranking orders product review comments by rating, recency,
// usefulness or a weighted composite, and filters them to trailing windows.
//
// Every function is pure: the reference time is an explicit argument and
// inputs are never modified, so callers may share slices across goroutines.
// Ranker is the one place the wall clock is read.
package ranking

import (
	"time"

	"github.com/comment-ranking-api/internal/models"
)

// Ranker binds the ranking functions to a clock and a set of weight profiles
type Ranker struct {
	now      func() time.Time
	profiles Profiles
}

// Option configures a Ranker
type Option func(*Ranker)

// WithClock overrides the clock used as the reference "now"
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.now = now }
}

// WithProfiles sets the named weight profiles
func WithProfiles(p Profiles) Option {
	return func(r *Ranker) {
		profiles := Profiles{DefaultProfile: DefaultWeights}
		for name, w := range p {
			profiles[name] = w
		}
		r.profiles = profiles
	}
}

// New creates a Ranker using time.Now and the default weights
func New(opts ...Option) *Ranker {
	r := &Ranker{
		now:      time.Now,
		profiles: Profiles{DefaultProfile: DefaultWeights},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the current reference time
func (r *Ranker) Now() time.Time {
	return r.now()
}

// Profile returns the weights registered under name
func (r *Ranker) Profile(name string) (Weights, bool) {
	return r.profiles.Lookup(name)
}

// Sort orders comments with the default profile at the current time
func (r *Ranker) Sort(comments []*models.Comment, key SortKey, dir Direction) []*models.Comment {
	w, _ := r.Profile(DefaultProfile)
	return Sort(comments, key, dir, r.now(), w)
}

// FilterByWindow filters comments to the last days days at the current time
func (r *Ranker) FilterByWindow(comments []*models.Comment, days int) []*models.Comment {
	return FilterByWindow(comments, days, r.now())
}
