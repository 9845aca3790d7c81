package analytics

import "github.com/Clark-Hu/cinescope/internal/domain"

// MovieReport bundles every per-movie aggregate shown on a movie page.
type MovieReport struct {
	Movie        domain.MovieAggregate
	Average      Average
	Distribution Distribution
	Trend        []TrendPoint
	Direction    Direction
}

// BuildMovieReport derives the per-movie aggregates from the movie's live ratings.
func BuildMovieReport(movie domain.MovieAggregate, ratings []domain.Rating) MovieReport {
	trend := BuildTrend(ratings)
	return MovieReport{
		Movie:        movie,
		Average:      MovieAverage(ratings),
		Distribution: BuildDistribution(ratings),
		Trend:        trend,
		Direction:    TrendDirection(trend),
	}
}

// CatalogReport bundles the catalog-wide dashboard aggregates.
type CatalogReport struct {
	TotalMovies  int
	TotalUsers   int
	TotalRatings int
	Average      Average
	Genres       []GenreCount
	Distribution Distribution
	Years        []YearCount
	TopRated     []domain.Movie
}

// CatalogInput is the snapshot a catalog report is computed from.
type CatalogInput struct {
	Movies      []domain.Movie
	LiveRatings []domain.Rating
	TotalUsers  int
}

// BuildCatalogReport derives the catalog aggregates from a snapshot.
func BuildCatalogReport(in CatalogInput, kernel Kernel) CatalogReport {
	aggs := aggregates(in.Movies)
	return CatalogReport{
		TotalMovies:  len(in.Movies),
		TotalUsers:   in.TotalUsers,
		TotalRatings: len(in.LiveRatings),
		Average:      CatalogAverage(aggs),
		Genres:       GenreDistribution(in.Movies, DefaultGenreLimit),
		Distribution: EstimateCatalogDistribution(aggs, in.LiveRatings, kernel),
		Years:        YearDistribution(in.Movies),
		TopRated:     TopRated(in.Movies, DefaultTopRatedLimit),
	}
}
