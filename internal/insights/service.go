// Package insights assembles analytics reports from stored catalog data.
package insights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/cinescope/internal/analytics"
	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/metrics"
)

// MovieSource reads movies.
type MovieSource interface {
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	ListAll(ctx context.Context) ([]domain.Movie, error)
}

// RatingSource reads live ratings.
type RatingSource interface {
	ListForMovie(ctx context.Context, movieID string) ([]domain.Rating, error)
	ListAll(ctx context.Context) ([]domain.Rating, error)
}

// UserCounter reports how many users are registered.
type UserCounter interface {
	CountProfiles(ctx context.Context) (int, error)
}

// Subscriber is the read side of the change feed.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan changefeed.Event, error)
}

// Options tunes a Service.
type Options struct {
	// Cache enables memoization of reports until the next relevant change.
	Cache  bool
	Kernel analytics.Kernel
	Logger zerolog.Logger
}

// Service builds movie and catalog reports.
type Service struct {
	movies  MovieSource
	ratings RatingSource
	users   UserCounter
	kernel  analytics.Kernel
	logger  zerolog.Logger

	cache *reportCache
	group singleflight.Group
}

// NewService wires a Service over the given sources.
func NewService(movies MovieSource, ratings RatingSource, users UserCounter, opts Options) *Service {
	s := &Service{
		movies:  movies,
		ratings: ratings,
		users:   users,
		kernel:  opts.Kernel,
		logger:  opts.Logger.With().Str("component", "insights").Logger(),
	}
	if opts.Cache {
		s.cache = newReportCache()
	}
	return s
}

// MovieReport returns the per-movie aggregates. Lookup errors from the movie source are
// returned unchanged so callers can match their not-found sentinel.
func (s *Service) MovieReport(ctx context.Context, movieID string) (analytics.MovieReport, error) {
	if s.cache == nil {
		return s.buildMovieReport(ctx, movieID)
	}
	if report, ok := s.cache.movie(movieID); ok {
		metrics.RecordCacheLookup("movie", true)
		return report, nil
	}
	metrics.RecordCacheLookup("movie", false)

	gen := s.cache.generation()
	v, err, _ := s.group.Do(fmt.Sprintf("movie:%s:%d", movieID, gen), func() (interface{}, error) {
		report, err := s.buildMovieReport(ctx, movieID)
		if err != nil {
			return nil, err
		}
		s.cache.storeMovie(movieID, report, gen)
		return report, nil
	})
	if err != nil {
		return analytics.MovieReport{}, err
	}
	return v.(analytics.MovieReport), nil
}

// CatalogReport returns the dashboard aggregates over the whole catalog.
func (s *Service) CatalogReport(ctx context.Context) (analytics.CatalogReport, error) {
	if s.cache == nil {
		return s.buildCatalogReport(ctx)
	}
	if report, ok := s.cache.catalogReport(); ok {
		metrics.RecordCacheLookup("catalog", true)
		return report, nil
	}
	metrics.RecordCacheLookup("catalog", false)

	gen := s.cache.generation()
	v, err, _ := s.group.Do(fmt.Sprintf("catalog:%d", gen), func() (interface{}, error) {
		report, err := s.buildCatalogReport(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.storeCatalog(report, gen)
		return report, nil
	})
	if err != nil {
		return analytics.CatalogReport{}, err
	}
	return v.(analytics.CatalogReport), nil
}

// Invalidate drops cached reports affected by a change to movieID.
func (s *Service) Invalidate(movieID string) {
	if s.cache == nil {
		return
	}
	s.cache.invalidate(movieID)
}

// Watch invalidates cached reports as change events arrive. It blocks until ctx is
// cancelled or the feed closes.
func (s *Service) Watch(ctx context.Context, feed Subscriber) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch event.Kind {
			case changefeed.KindRating, changefeed.KindMovie:
				s.Invalidate(event.MovieID)
				s.logger.Debug().Str("movie_id", event.MovieID).Str("kind", string(event.Kind)).Msg("analytics invalidated")
			}
		}
	}
}

func (s *Service) buildMovieReport(ctx context.Context, movieID string) (analytics.MovieReport, error) {
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return analytics.MovieReport{}, err
	}
	ratings, err := s.ratings.ListForMovie(ctx, movieID)
	if err != nil {
		return analytics.MovieReport{}, fmt.Errorf("load ratings: %w", err)
	}

	start := time.Now()
	report := analytics.BuildMovieReport(movie.Aggregate(), ratings)
	metrics.ObserveAnalytics("movie", time.Since(start))
	return report, nil
}

func (s *Service) buildCatalogReport(ctx context.Context) (analytics.CatalogReport, error) {
	movies, err := s.movies.ListAll(ctx)
	if err != nil {
		return analytics.CatalogReport{}, fmt.Errorf("load movies: %w", err)
	}
	ratings, err := s.ratings.ListAll(ctx)
	if err != nil {
		return analytics.CatalogReport{}, fmt.Errorf("load ratings: %w", err)
	}
	users, err := s.users.CountProfiles(ctx)
	if err != nil {
		return analytics.CatalogReport{}, fmt.Errorf("count users: %w", err)
	}

	start := time.Now()
	report := analytics.BuildCatalogReport(analytics.CatalogInput{
		Movies:      movies,
		LiveRatings: ratings,
		TotalUsers:  users,
	}, s.kernel)
	metrics.ObserveAnalytics("catalog", time.Since(start))
	return report, nil
}

// reportCache holds computed reports. Every invalidation bumps gen; a result computed
// under an older generation is discarded instead of stored.
type reportCache struct {
	mu      sync.Mutex
	gen     uint64
	movies  map[string]analytics.MovieReport
	catalog *analytics.CatalogReport
}

func newReportCache() *reportCache {
	return &reportCache{movies: make(map[string]analytics.MovieReport)}
}

func (c *reportCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *reportCache) movie(id string) (analytics.MovieReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.movies[id]
	return report, ok
}

func (c *reportCache) catalogReport() (analytics.CatalogReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog == nil {
		return analytics.CatalogReport{}, false
	}
	return *c.catalog, true
}

func (c *reportCache) storeMovie(id string, report analytics.MovieReport, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.movies[id] = report
}

func (c *reportCache) storeCatalog(report analytics.CatalogReport, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.catalog = &report
}

func (c *reportCache) invalidate(movieID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.movies, movieID)
	c.catalog = nil
}
