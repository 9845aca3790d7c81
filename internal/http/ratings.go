package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

type ratingRequest struct {
	Rating *int `json:"rating" validate:"required,min=1,max=10"`
}

type ratingResponse struct {
	MovieID   string    `json:"movieId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// handleSubmitRating creates or replaces the caller's rating: 201 on first rating, 200 after.
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !s.decodeAndValidate(w, r, &req, nil) {
		return
	}

	session := sessionOf(r)
	rating, inserted, err := s.repo.Ratings.Upsert(r.Context(), repository.RatingUpsertParams{
		MovieID: routeID(r),
		UserID:  session.UserID,
		Value:   *req.Rating,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondInternal(w, r, err, "Failed to process rating")
		return
	}
	s.publish(r, rating.MovieID, changefeed.KindRating)

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toRatingResponse(rating))
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	rating, err := s.repo.Ratings.Get(r.Context(), routeID(r), sessionOf(r).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondInternal(w, r, err, "Failed to fetch rating")
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func toRatingResponse(rating domain.Rating) ratingResponse {
	return ratingResponse{
		MovieID:   rating.MovieID,
		UserID:    rating.UserID,
		Rating:    rating.Value,
		CreatedAt: rating.CreatedAt,
		UpdatedAt: rating.UpdatedAt,
	}
}
