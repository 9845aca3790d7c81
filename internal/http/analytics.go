package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/cinescope/internal/analytics"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

type movieAnalyticsResponse struct {
	MovieID      string                 `json:"movieId"`
	Average      analytics.Average      `json:"average"`
	Distribution analytics.Distribution `json:"distribution"`
	Trend        []analytics.TrendPoint `json:"trend"`
	Direction    analytics.Direction    `json:"direction"`
}

type catalogAnalyticsResponse struct {
	TotalMovies        int                    `json:"totalMovies"`
	TotalUsers         int                    `json:"totalUsers"`
	TotalRatings       int                    `json:"totalRatings"`
	AverageRating      analytics.Average      `json:"averageRating"`
	Genres             []analytics.GenreCount `json:"genres"`
	RatingDistribution analytics.Distribution `json:"ratingDistribution"`
	Years              []analytics.YearCount  `json:"years"`
	TopRated           []movieResponse        `json:"topRated"`
}

func (s *Server) handleMovieAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.insights.MovieReport(r.Context(), routeID(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondUnavailable(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, movieAnalyticsResponse{
		MovieID:      report.Movie.MovieID,
		Average:      report.Average,
		Distribution: report.Distribution,
		Trend:        report.Trend,
		Direction:    report.Direction,
	})
}

func (s *Server) handleCatalogAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.insights.CatalogReport(r.Context())
	if err != nil {
		s.respondUnavailable(w, r, err)
		return
	}

	genres := report.Genres
	if genres == nil {
		genres = []analytics.GenreCount{}
	}
	years := report.Years
	if years == nil {
		years = []analytics.YearCount{}
	}
	s.respondJSON(w, http.StatusOK, catalogAnalyticsResponse{
		TotalMovies:        report.TotalMovies,
		TotalUsers:         report.TotalUsers,
		TotalRatings:       report.TotalRatings,
		AverageRating:      report.Average,
		Genres:             genres,
		RatingDistribution: report.Distribution,
		Years:              years,
		TopRated:           toMovieResponses(report.TopRated),
	})
}
