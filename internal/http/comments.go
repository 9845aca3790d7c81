package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

type commentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type commentResponse struct {
	ID          string    `json:"id"`
	MovieID     string    `json:"movieId"`
	UserID      string    `json:"userId"`
	Text        string    `json:"text"`
	AuthorName  *string   `json:"authorName"`
	AuthorEmail *string   `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	comments, err := s.repo.Comments.List(r.Context(), movie.ID)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to list comments")
		return
	}
	items := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		items = append(items, toCommentResponse(c))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	normalize := func() { req.Text = strings.TrimSpace(req.Text) }
	if !s.decodeAndValidate(w, r, &req, normalize) {
		return
	}

	comment, err := s.repo.Comments.Create(r.Context(), repository.CommentCreateParams{
		MovieID: routeID(r),
		UserID:  sessionOf(r).UserID,
		Text:    req.Text,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondInternal(w, r, err, "Failed to create comment")
		return
	}
	s.publish(r, comment.MovieID, changefeed.KindComment)
	s.respondJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		MovieID:     c.MovieID,
		UserID:      c.UserID,
		Text:        c.Text,
		AuthorName:  c.AuthorName,
		AuthorEmail: c.AuthorEmail,
		CreatedAt:   c.CreatedAt,
	}
}
