// Package dataset looks up a movie's original rating in the external ratings corpus.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/metrics"
)

// ErrNotFound is returned when the corpus has no entry for the requested title.
var ErrNotFound = errors.New("dataset: not found")

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("dataset: upstream unavailable")

// Result contains the data used to enrich a new movie record.
type Result struct {
	OriginalRating     *float64
	OriginalNumRatings *int
	Certificate        *string
	Runtime            *int
	Overview           *string
	Genres             []string
}

// Client defines the contract for querying the ratings corpus.
type Client interface {
	Lookup(ctx context.Context, title string) (*Result, error)
}

// NoopClient is used when no corpus is configured; every lookup misses.
type NoopClient struct{}

// Lookup implements Client.
func (NoopClient) Lookup(context.Context, string) (*Result, error) {
	return nil, ErrNotFound
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Result]
	logger  zerolog.Logger
}

// NewHTTPClient constructs a new HTTP-backed corpus client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse dataset url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse dataset url: %q is not absolute", baseURL)
	}
	logger = logger.With().Str("component", "dataset").Logger()

	c := &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "dataset",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A miss is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("dataset circuit breaker state change")
		},
	})
	return c, nil
}

// Lookup retrieves the corpus entry for title.
func (c *HTTPClient) Lookup(ctx context.Context, title string) (*Result, error) {
	result, err := c.breaker.Execute(func() (*Result, error) {
		return c.fetch(ctx, title)
	})
	switch {
	case err == nil:
		metrics.DatasetLookupsTotal.WithLabelValues("hit").Inc()
		return result, nil
	case errors.Is(err, ErrNotFound):
		metrics.DatasetLookupsTotal.WithLabelValues("miss").Inc()
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.DatasetLookupsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		metrics.DatasetLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
}

func (c *HTTPClient) fetch(ctx context.Context, title string) (*Result, error) {
	rel := &url.URL{Path: c.baseURL.Path + "/ratings"}
	q := rel.Query()
	q.Set("title", title)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode dataset response: %w", err)
		}
		return convertToResult(payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("title", title).Msg("unexpected dataset status")
		return nil, fmt.Errorf("dataset: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Title       string   `json:"title"`
	Rating      *float64 `json:"rating"`
	NumRatings  *int     `json:"numRatings"`
	Certificate *string  `json:"certificate"`
	Runtime     *int     `json:"runtime"`
	Overview    *string  `json:"overview"`
	Genres      []string `json:"genres"`
}

// convertToResult drops values outside the rating scale and negative counts.
func convertToResult(payload apiResponse) *Result {
	result := &Result{
		Certificate: payload.Certificate,
		Overview:    payload.Overview,
		Genres:      make([]string, 0, len(payload.Genres)),
	}

	if payload.Rating != nil {
		rating := *payload.Rating
		if rating >= domain.MinRating && rating <= domain.MaxRating {
			result.OriginalRating = &rating
		}
	}
	if payload.NumRatings != nil && *payload.NumRatings >= 0 {
		count := *payload.NumRatings
		result.OriginalNumRatings = &count
	}
	if result.OriginalRating == nil {
		result.OriginalNumRatings = nil
	}
	if payload.Runtime != nil && *payload.Runtime > 0 {
		runtime := *payload.Runtime
		result.Runtime = &runtime
	}
	for _, genre := range payload.Genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			result.Genres = append(result.Genres, genre)
		}
	}
	return result
}
