package httpserver

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/dataset"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/poster"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

const maxPosterBytes = 10 << 20 // 10 MiB

type movieCreateRequest struct {
	Title              string   `json:"title" validate:"required,max=300"`
	Year               int      `json:"year" validate:"required,gte=1870,lte=2100"`
	Certificate        string   `json:"certificate" validate:"max=16"`
	Genres             []string `json:"genres" validate:"max=12,dive,required,max=40"`
	Overview           string   `json:"overview" validate:"max=5000"`
	Runtime            int      `json:"runtime" validate:"gte=0,lte=1000"`
	PosterURL          *string  `json:"posterUrl" validate:"omitempty,url"`
	OriginalRating     *float64 `json:"originalRating" validate:"omitempty,gte=1,lte=10"`
	OriginalNumRatings *int     `json:"originalNumRatings" validate:"omitempty,gte=0"`
}

func (req *movieCreateRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Certificate = strings.TrimSpace(req.Certificate)
	req.Overview = strings.TrimSpace(req.Overview)
	req.PosterURL = normalizeStringPtr(req.PosterURL)
	genres := make([]string, 0, len(req.Genres))
	for _, g := range req.Genres {
		genres = append(genres, strings.TrimSpace(g))
	}
	req.Genres = genres
}

type posterURLRequest struct {
	PosterURL string `json:"posterUrl" validate:"required,url"`
}

type movieListResponse struct {
	Items      []movieResponse `json:"items"`
	NextOffset *int            `json:"nextOffset,omitempty"`
}

type movieResponse struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Year               int       `json:"year"`
	Certificate        string    `json:"certificate"`
	Genres             []string  `json:"genres"`
	Overview           string    `json:"overview"`
	Runtime            int       `json:"runtime"`
	PosterURL          *string   `json:"posterUrl"`
	Rating             float64   `json:"rating"`
	NumRatings         int       `json:"numRatings"`
	OriginalRating     *float64  `json:"originalRating,omitempty"`
	OriginalNumRatings *int      `json:"originalNumRatings,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to list movies")
		return
	}

	s.respondJSON(w, http.StatusOK, movieListResponse{
		Items:      toMovieResponses(result.Items),
		NextOffset: result.NextOffset,
	})
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		filters.Genre = &val
	}
	if val := strings.TrimSpace(query.Get("year")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid year value")
		}
		filters.Year = &year
	}
	if val := strings.TrimSpace(query.Get("sort")); val != "" {
		if !repository.ValidSort(val) {
			return filters, fmt.Errorf("invalid sort value")
		}
		filters.Sort = val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 1 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("offset")); val != "" {
		offset, err := strconv.Atoi(val)
		if err != nil || offset < 0 {
			return filters, fmt.Errorf("invalid offset value")
		}
		filters.Offset = offset
	}
	return filters, nil
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if !s.decodeAndValidate(w, r, &req, req.normalize) {
		return
	}

	params := repository.MovieCreateParams{
		Title:              req.Title,
		Year:               req.Year,
		Certificate:        req.Certificate,
		Genres:             req.Genres,
		Overview:           req.Overview,
		Runtime:            req.Runtime,
		PosterURL:          req.PosterURL,
		OriginalRating:     req.OriginalRating,
		OriginalNumRatings: req.OriginalNumRatings,
	}
	if params.OriginalRating == nil {
		s.enrichFromDataset(r, &params)
	}

	movie, err := s.repo.Movies.Create(r.Context(), params)
	if err != nil {
		s.respondInternal(w, r, err, "Failed to create movie")
		return
	}
	s.publish(r, movie.ID, changefeed.KindMovie)

	w.Header().Set("Location", "/movies/"+movie.ID)
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

// enrichFromDataset fills original ratings and blank descriptive fields from the corpus.
// Lookup failures leave params untouched.
func (s *Server) enrichFromDataset(r *http.Request, params *repository.MovieCreateParams) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.DatasetTimeoutSecs)*time.Second)
	defer cancel()

	result, err := s.dataset.Lookup(ctx, params.Title)
	if err != nil {
		if !errors.Is(err, dataset.ErrNotFound) {
			s.requestLogger(r).Warn().Err(err).Str("title", params.Title).Msg("dataset lookup failed")
		}
		return
	}

	params.OriginalRating = result.OriginalRating
	params.OriginalNumRatings = result.OriginalNumRatings
	if params.Certificate == "" && result.Certificate != nil {
		params.Certificate = *result.Certificate
	}
	if params.Runtime == 0 && result.Runtime != nil {
		params.Runtime = *result.Runtime
	}
	if params.Overview == "" && result.Overview != nil {
		params.Overview = *result.Overview
	}
	if len(params.Genres) == 0 {
		params.Genres = result.Genres
	}
}

func (s *Server) handleSetPosterURL(w http.ResponseWriter, r *http.Request) {
	var req posterURLRequest
	normalize := func() { req.PosterURL = strings.TrimSpace(req.PosterURL) }
	if !s.decodeAndValidate(w, r, &req, normalize) {
		return
	}
	s.updatePoster(w, r, routeID(r), req.PosterURL)
}

func (s *Server) handleUploadPoster(w http.ResponseWriter, r *http.Request) {
	if s.posters == nil {
		s.respondError(w, http.StatusServiceUnavailable, "POSTER_STORAGE_DISABLED", "Poster uploads are not configured")
		return
	}
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPosterBytes)
	if err := r.ParseMultipartForm(maxPosterBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart form with a poster file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("poster")
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "poster file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename)))
	}

	publicURL, err := s.posters.Upload(r.Context(), movie.ID, header.Filename, file, header.Size, contentType)
	switch {
	case errors.Is(err, poster.ErrDisabled):
		s.respondError(w, http.StatusServiceUnavailable, "POSTER_STORAGE_DISABLED", "Poster uploads are not configured")
		return
	case errors.Is(err, poster.ErrNotImage):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "poster must be an image")
		return
	case err != nil:
		s.respondInternal(w, r, err, "Failed to upload poster")
		return
	}

	s.updatePoster(w, r, movie.ID, publicURL)
}

func (s *Server) updatePoster(w http.ResponseWriter, r *http.Request, movieID, posterURL string) {
	movie, err := s.repo.Movies.UpdatePoster(r.Context(), movieID, posterURL)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.respondInternal(w, r, err, "Failed to update poster")
		return
	}
	s.publish(r, movie.ID, changefeed.KindMovie)
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func routeID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// loadMovie resolves the {id} route parameter, writing a 404 when it does not exist.
func (s *Server) loadMovie(w http.ResponseWriter, r *http.Request) (domain.Movie, bool) {
	movie, err := s.repo.Movies.GetByID(r.Context(), routeID(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return domain.Movie{}, false
		}
		s.respondInternal(w, r, err, "Failed to fetch movie")
		return domain.Movie{}, false
	}
	return movie, true
}

// publish announces a change; a feed failure never fails the request. Cached analytics
// are dropped here as well so the writer reads its own change.
func (s *Server) publish(r *http.Request, movieID string, kind changefeed.Kind) {
	if s.insights != nil && kind != changefeed.KindComment {
		s.insights.Invalidate(movieID)
	}
	if s.feed == nil {
		return
	}
	event := changefeed.Event{MovieID: movieID, Kind: kind}
	if err := s.feed.Publish(r.Context(), event); err != nil {
		s.requestLogger(r).Warn().Err(err).Str("movie_id", movieID).Msg("publish change event failed")
	}
}

func toMovieResponses(movies []domain.Movie) []movieResponse {
	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	return items
}

func toMovieResponse(movie domain.Movie) movieResponse {
	genres := movie.Genres
	if genres == nil {
		genres = []string{}
	}
	return movieResponse{
		ID:                 movie.ID,
		Title:              movie.Title,
		Year:               movie.Year,
		Certificate:        movie.Certificate,
		Genres:             genres,
		Overview:           movie.Overview,
		Runtime:            movie.Runtime,
		PosterURL:          movie.PosterURL,
		Rating:             movie.Rating,
		NumRatings:         movie.NumRatings,
		OriginalRating:     movie.OriginalRating,
		OriginalNumRatings: movie.OriginalNumRatings,
		CreatedAt:          movie.CreatedAt,
	}
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
