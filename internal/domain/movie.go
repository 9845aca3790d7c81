package domain

import "time"

// Movie represents a catalog title together with its denormalized rating aggregate.
type Movie struct {
	ID          string
	Title       string
	Year        int
	Certificate string
	Genres      []string
	Overview    string
	Runtime     int
	PosterURL   *string
	// Rating is the blended mean of the original corpus and live user ratings.
	Rating float64
	// NumRatings counts live ratings submitted through the service.
	NumRatings         int
	OriginalRating     *float64
	OriginalNumRatings *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Aggregate exposes the rating fields of a movie consumed by analytics.
func (m Movie) Aggregate() MovieAggregate {
	return MovieAggregate{
		MovieID:            m.ID,
		Rating:             m.Rating,
		NumRatings:         m.NumRatings,
		OriginalRating:     m.OriginalRating,
		OriginalNumRatings: m.OriginalNumRatings,
	}
}

// MovieAggregate holds per-movie rating summary fields. Absent originals carry zero weight.
type MovieAggregate struct {
	MovieID            string
	Rating             float64
	NumRatings         int
	OriginalRating     *float64
	OriginalNumRatings *int
}

// OriginalWeight returns the original mean and count, treating absent values as zero.
func (a MovieAggregate) OriginalWeight() (float64, int) {
	var (
		mean  float64
		count int
	)
	if a.OriginalRating != nil {
		mean = *a.OriginalRating
	}
	if a.OriginalNumRatings != nil {
		count = *a.OriginalNumRatings
	}
	return mean, count
}
