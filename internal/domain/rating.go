package domain

import "time"

// Rating bounds (inclusive).
const (
	MinRating = 1
	MaxRating = 10
)

// Rating represents a single user's score for a movie. There is at most one per user and movie.
type Rating struct {
	ID        int64
	MovieID   string
	UserID    string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Valid reports whether the rating carries an in-range value and a submission time.
func (r Rating) Valid() bool {
	return r.Value >= MinRating && r.Value <= MaxRating && !r.CreatedAt.IsZero()
}
