package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkHandleSubmitRating(b *testing.B) {
	srv := buildTestServer(b)
	movie := srv.mustCreateMovie(b, "Benchmark Movie")
	target := "/movies/" + movie.ID + "/rating"
	token := srv.token(b, "bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := srv.doWithToken(b, http.MethodPut, target, token, `{"rating":4}`)
		if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func BenchmarkHandleMovieAnalytics(b *testing.B) {
	srv := buildTestServer(b)
	movie := srv.mustCreateMovie(b, "Benchmark Analytics")
	for i := 0; i < 50; i++ {
		srv.do(b, http.MethodPut, "/movies/"+movie.ID+"/rating", fmt.Sprintf("bench-%d", i), `{"rating":7}`)
	}
	target := "/movies/" + movie.ID + "/analytics"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := srv.doWithToken(b, http.MethodGet, target, "", "")
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
