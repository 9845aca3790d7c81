package analytics

import (
	"sort"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// Report sizes used by the catalog dashboard.
const (
	DefaultGenreLimit    = 8
	DefaultTopRatedLimit = 5
)

// GenreCount is the number of movies tagged with a genre.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"value"`
}

// YearCount is the number of movies released in a year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// GenreDistribution counts movies per genre, most common first. A limit <= 0 keeps all genres.
func GenreDistribution(movies []domain.Movie, limit int) []GenreCount {
	counts := make(map[string]int)
	for _, m := range movies {
		for _, g := range m.Genres {
			if g == "" {
				continue
			}
			counts[g]++
		}
	}

	out := make([]GenreCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, GenreCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// YearDistribution counts movies per release year in ascending year order.
func YearDistribution(movies []domain.Movie) []YearCount {
	counts := make(map[int]int)
	for _, m := range movies {
		counts[m.Year]++
	}
	out := make([]YearCount, 0, len(counts))
	for year, count := range counts {
		out = append(out, YearCount{Year: year, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// TopRated returns up to limit movies with live ratings, highest blended rating first.
func TopRated(movies []domain.Movie, limit int) []domain.Movie {
	rated := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if m.NumRatings > 0 {
			rated = append(rated, m)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].Rating != rated[j].Rating {
			return rated[i].Rating > rated[j].Rating
		}
		return rated[i].Title < rated[j].Title
	})
	if limit > 0 && len(rated) > limit {
		rated = rated[:limit]
	}
	return rated
}

func aggregates(movies []domain.Movie) []domain.MovieAggregate {
	out := make([]domain.MovieAggregate, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Aggregate())
	}
	return out
}
