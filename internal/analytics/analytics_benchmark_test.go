package analytics

import (
	"testing"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

func BenchmarkBuildMovieReport(b *testing.B) {
	ratings := make([]domain.Rating, 0, 5000)
	for i := 0; i < 5000; i++ {
		ratings = append(ratings, rating(int64(i), i%10+1, (i*7919)%5000))
	}
	movie := domain.MovieAggregate{MovieID: "bench"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BuildMovieReport(movie, ratings)
	}
}

func BenchmarkEstimateCatalogDistribution(b *testing.B) {
	movies := make([]domain.MovieAggregate, 0, 2000)
	for i := 0; i < 2000; i++ {
		mean := float64(i%90)/10 + 1
		count := 100 + i
		movies = append(movies, domain.MovieAggregate{OriginalRating: &mean, OriginalNumRatings: &count})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = EstimateCatalogDistribution(movies, nil, DefaultKernel)
	}
}
