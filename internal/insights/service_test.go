package insights

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinescope/internal/analytics"
	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/domain"
	"github.com/Clark-Hu/cinescope/internal/logging"
)

var errMissing = errors.New("missing")

type fakeStore struct {
	mu      sync.Mutex
	movies  map[string]domain.Movie
	ratings map[string][]domain.Rating
	users   int
	loads   atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{movies: map[string]domain.Movie{}, ratings: map[string][]domain.Rating{}}
}

func (f *fakeStore) addRating(movieID string, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.ratings[movieID])
	f.ratings[movieID] = append(f.ratings[movieID], domain.Rating{
		ID:        int64(n + 1),
		MovieID:   movieID,
		UserID:    "u",
		Value:     value,
		CreatedAt: time.Date(2024, 1, 1, 0, n, 0, 0, time.UTC),
	})
}

func (f *fakeStore) GetByID(_ context.Context, id string) (domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	movie, ok := f.movies[id]
	if !ok {
		return domain.Movie{}, errMissing
	}
	return movie, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads.Add(1)
	movies := make([]domain.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		movies = append(movies, m)
	}
	return movies, nil
}

func (f *fakeStore) CountProfiles(context.Context) (int, error) {
	return f.users, nil
}

type fakeRatings struct{ store *fakeStore }

func (r fakeRatings) ListForMovie(_ context.Context, movieID string) ([]domain.Rating, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.loads.Add(1)
	return append([]domain.Rating(nil), r.store.ratings[movieID]...), nil
}

func (r fakeRatings) ListAll(_ context.Context) ([]domain.Rating, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]domain.Rating, 0)
	for _, rs := range r.store.ratings {
		all = append(all, rs...)
	}
	return all, nil
}

func newTestService(cache bool) (*Service, *fakeStore) {
	store := newFakeStore()
	store.movies["m1"] = domain.Movie{ID: "m1", Title: "One", Year: 2000, Genres: []string{"Drama"}}
	store.users = 3
	svc := NewService(store, fakeRatings{store}, store, Options{
		Cache:  cache,
		Kernel: analytics.DefaultKernel,
		Logger: logging.Nop(),
	})
	return svc, store
}

func TestMovieReport(t *testing.T) {
	svc, store := newTestService(false)
	store.addRating("m1", 8)
	store.addRating("m1", 6)
	store.addRating("m1", 10)

	report, err := svc.MovieReport(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 8.0, report.Average.Value)
	assert.Equal(t, 3, report.Average.Count)
	assert.Equal(t, analytics.DirectionFlat, report.Direction, "running average returns to 8")
	assert.Len(t, report.Trend, 3)

	_, err = svc.MovieReport(context.Background(), "nope")
	assert.ErrorIs(t, err, errMissing)
}

func TestCatalogReport(t *testing.T) {
	svc, store := newTestService(false)
	store.addRating("m1", 9)

	report, err := svc.CatalogReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalMovies)
	assert.Equal(t, 3, report.TotalUsers)
	assert.Equal(t, 1, report.TotalRatings)
	assert.Equal(t, 1, report.Distribution.Count(9))
}

func TestCacheServesUntilInvalidated(t *testing.T) {
	svc, store := newTestService(true)
	store.addRating("m1", 4)
	ctx := context.Background()

	first, err := svc.MovieReport(ctx, "m1")
	require.NoError(t, err)
	_, err = svc.MovieReport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.loads.Load(), "second call should hit the cache")

	store.addRating("m1", 10)
	stale, err := svc.MovieReport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, first, stale)

	svc.Invalidate("m1")
	fresh, err := svc.MovieReport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, fresh.Average.Value)
	assert.Equal(t, 2, fresh.Average.Count)
}

func TestStaleComputationIsNotStored(t *testing.T) {
	cache := newReportCache()
	gen := cache.generation()
	cache.invalidate("m1")
	cache.storeMovie("m1", analytics.MovieReport{}, gen)
	cache.storeCatalog(analytics.CatalogReport{}, gen)

	_, ok := cache.movie("m1")
	assert.False(t, ok)
	_, ok = cache.catalogReport()
	assert.False(t, ok)
}

func TestWatchInvalidatesOnChanges(t *testing.T) {
	svc, store := newTestService(true)
	feed := changefeed.New(8, logging.Nop())
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, feed) }()

	_, err := svc.CatalogReport(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), store.loads.Load())

	store.addRating("m1", 5)
	// The subscription is registered asynchronously; keep publishing until the cache drops.
	assert.Eventually(t, func() bool {
		_ = feed.Publish(ctx, changefeed.Event{MovieID: "m1", Kind: changefeed.KindRating})
		report, err := svc.CatalogReport(ctx)
		return err == nil && report.TotalRatings == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestConcurrentCallersShareOneComputation(t *testing.T) {
	svc, store := newTestService(true)
	store.addRating("m1", 7)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := svc.MovieReport(context.Background(), "m1")
			assert.NoError(t, err)
			assert.Equal(t, 7.0, report.Average.Value)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, store.loads.Load(), int32(1))
}
