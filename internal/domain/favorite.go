package domain

import "time"

// Favorite marks a movie on a user's favorites list.
type Favorite struct {
	ID        string
	MovieID   string
	UserID    string
	CreatedAt time.Time
}
