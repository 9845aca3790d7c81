package main

import (
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinescope/internal/logging"
)

type movieEntry struct {
	Title       string   `json:"title"`
	Rating      *float64 `json:"rating"`
	NumRatings  *int     `json:"numRatings"`
	Certificate *string  `json:"certificate"`
	Runtime     *int     `json:"runtime"`
	Overview    *string  `json:"overview"`
	Genres      []string `json:"genres"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "testdata/mock-dataset.json", "path to mock data file")
		apiKey  = flag.String("api-key", "", "required X-API-Key value; empty accepts any")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{Level: level, Format: "console"})

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal().Err(err).Msg("read mock data")
	}

	var payload map[string]movieEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		logger.Fatal().Err(err).Msg("parse mock data")
	}

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("entries", len(payload)).Msg("mock dataset listening")
	if err := http.ListenAndServe(addr, newHandler(payload, *apiKey, logger)); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// newHandler serves GET /ratings?title=. Titles match case-insensitively.
func newHandler(entries map[string]movieEntry, apiKey string, logger zerolog.Logger) http.Handler {
	byTitle := make(map[string]movieEntry, len(entries))
	for title, entry := range entries {
		if entry.Title == "" {
			entry.Title = title
		}
		byTitle[strings.ToLower(title)] = entry
	}

	r := chi.NewRouter()
	r.Get("/ratings", func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		title := strings.TrimSpace(r.URL.Query().Get("title"))
		logger.Debug().Str("title", title).Msg("lookup")

		entry, ok := byTitle[strings.ToLower(title)]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}
