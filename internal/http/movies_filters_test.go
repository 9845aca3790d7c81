package httpserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Clark-Hu/cinescope/internal/config"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/logging"
	"github.com/Clark-Hu/cinescope/internal/repository"
)

func TestBuildMovieFilters(t *testing.T) {
	values, _ := url.ParseQuery("q= Nolan &year=2010&genre= Drama &sort=rating-asc&limit=150&offset=40")

	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query == nil || *filters.Query != "Nolan" {
		t.Fatalf("query not trimmed: %+v", filters.Query)
	}
	if filters.Year == nil || *filters.Year != 2010 {
		t.Fatalf("year parse failed: %+v", filters.Year)
	}
	if filters.Genre == nil || *filters.Genre != "Drama" {
		t.Fatalf("genre parse failed: %+v", filters.Genre)
	}
	if filters.Sort != repository.SortRatingAsc {
		t.Fatalf("sort = %q", filters.Sort)
	}
	if filters.Limit != 150 {
		t.Fatalf("limit not parsed: %d", filters.Limit)
	}
	if filters.Offset != 40 {
		t.Fatalf("offset not parsed: %d", filters.Offset)
	}
}

func TestBuildMovieFilters_Invalid(t *testing.T) {
	for _, raw := range []string{"year=abc", "sort=popularity", "limit=-1", "limit=x", "offset=-5"} {
		values, _ := url.ParseQuery(raw)
		if _, err := buildMovieFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestOrderByIDs(t *testing.T) {
	movies := []domain.Movie{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := orderByIDs(movies, []string{"c", "missing", "a"})
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("orderByIDs = %+v", got)
	}
}

func TestWriteLimiter(t *testing.T) {
	srv := &Server{cfg: config.Config{RateLimitPerMinute: 1}, logger: logging.Nop()}
	handler := srv.newWriteLimiter()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/movies/x/rating", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [204 429]", codes)
	}
}

func TestWriteLimiterDisabled(t *testing.T) {
	srv := &Server{cfg: config.Config{RateLimitPerMinute: 0}}
	handler := srv.newWriteLimiter()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestToMovieResponseNeverNilGenres(t *testing.T) {
	resp := toMovieResponse(domain.Movie{ID: "m"})
	if resp.Genres == nil {
		t.Fatalf("genres should serialize as an empty list")
	}
}
