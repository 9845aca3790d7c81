package analytics

import "github.com/Clark-Hu/cinescope/internal/domain"

// Average is a mean rounded to one decimal. HasData is false when nothing was averaged,
// in which case Value is zero.
type Average struct {
	Value   float64 `json:"value"`
	Count   int     `json:"count"`
	HasData bool    `json:"hasData"`
}

// MovieAverage averages the values of well-formed ratings.
func MovieAverage(ratings []domain.Rating) Average {
	sum, count := 0, 0
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		sum += r.Value
		count++
	}
	if count == 0 {
		return Average{}
	}
	return Average{
		Value:   roundTo(float64(sum)/float64(count), 1),
		Count:   count,
		HasData: true,
	}
}

// CatalogAverage averages the stored blended rating of every movie.
func CatalogAverage(movies []domain.MovieAggregate) Average {
	if len(movies) == 0 {
		return Average{}
	}
	var sum float64
	for _, m := range movies {
		sum += m.Rating
	}
	return Average{
		Value:   roundTo(sum/float64(len(movies)), 1),
		Count:   len(movies),
		HasData: true,
	}
}
