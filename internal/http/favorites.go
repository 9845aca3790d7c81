package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

type favoriteResponse struct {
	MovieID  string `json:"movieId"`
	Favorite bool   `json:"favorite"`
}

type meResponse struct {
	UserID  string `json:"userId"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

func (s *Server) handleGetFavorite(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	favorite, err := s.repo.Favorites.Exists(r.Context(), movie.ID, sessionOf(r).UserID)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to fetch favorite")
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteResponse{MovieID: movie.ID, Favorite: favorite})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	movieID := routeID(r)
	favorite, err := s.repo.Favorites.Toggle(r.Context(), movieID, sessionOf(r).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondInternal(w, r, err, "Failed to toggle favorite")
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteResponse{MovieID: movieID, Favorite: favorite})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.Favorites.ListMovieIDs(r.Context(), sessionOf(r).UserID)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to list favorites")
		return
	}
	movies, err := s.repo.Movies.ListByIDs(r.Context(), ids)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to list favorites")
		return
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{Items: toMovieResponses(orderByIDs(movies, ids))})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	isAdmin, err := s.repo.Users.IsAdmin(r.Context(), session.UserID)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to check permissions")
		return
	}
	s.respondJSON(w, http.StatusOK, meResponse{UserID: session.UserID, Email: session.Email, IsAdmin: isAdmin})
}

// orderByIDs returns movies in the order of ids, most recently favorited first.
func orderByIDs(movies []domain.Movie, ids []string) []domain.Movie {
	byID := make(map[string]domain.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}
	ordered := make([]domain.Movie, 0, len(movies))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered
}
