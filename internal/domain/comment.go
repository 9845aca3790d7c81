package domain

import "time"

// Comment is a user's free-text note on a movie.
type Comment struct {
	ID          string
	MovieID     string
	UserID      string
	Text        string
	AuthorName  *string
	AuthorEmail *string
	CreatedAt   time.Time
}
