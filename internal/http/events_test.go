package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/config"
)

func TestHandleMovieEvents_StreamsRatingChanges(t *testing.T) {
	srv := buildTestServer(t)
	movie := srv.mustCreateMovie(t, "Live")

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/movies/" + movie.ID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d", resp.StatusCode)
	}

	other := srv.mustCreateMovie(t, "Elsewhere")

	type result struct {
		payload []byte
		err     error
	}
	received := make(chan result, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, payload, err := conn.ReadMessage()
		received <- result{payload: payload, err: err}
	}()

	// The subscription is registered right after the handshake; keep rating until it is live.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		srv.do(t, http.MethodPut, "/movies/"+other.ID+"/rating", "user-1", `{"rating":3}`)
		srv.do(t, http.MethodPut, "/movies/"+movie.ID+"/rating", "user-1", `{"rating":6}`)

		select {
		case res := <-received:
			if res.err != nil {
				t.Fatalf("read event: %v", res.err)
			}
			var event changefeed.Event
			if err := json.Unmarshal(res.payload, &event); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if event.MovieID != movie.ID || event.Kind != changefeed.KindRating {
				t.Fatalf("unexpected event %+v", event)
			}
			return
		case <-ticker.C:
		}
	}
}

func TestHandleMovieEvents_UnknownMovie(t *testing.T) {
	srv := buildTestServer(t)
	rec := srv.do(t, http.MethodGet, "/movies/00000000-0000-0000-0000-000000000000/events", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAllowOrigin(t *testing.T) {
	srv := &Server{cfg: config.Config{CORSOrigins: []string{"https://app.example.com"}}}
	cases := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"https://app.example.com", true},
		{"https://APP.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.origin != "" {
			req.Header.Set("Origin", c.origin)
		}
		if got := srv.allowOrigin(req); got != c.allowed {
			t.Fatalf("allowOrigin(%q) = %v, want %v", c.origin, got, c.allowed)
		}
	}
}
