package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinescope/internal/auth"
	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/config"
	"github.com/Clark-Hu/cinescope/internal/dataset"
	"github.com/Clark-Hu/cinescope/internal/insights"
	"github.com/Clark-Hu/cinescope/internal/poster"
	"github.com/Clark-Hu/cinescope/internal/repository"
	"github.com/Clark-Hu/cinescope/internal/store"
)

// EventFeed publishes change events and streams them per movie.
type EventFeed interface {
	changefeed.Publisher
	SubscribeMovie(ctx context.Context, movieID string) (<-chan changefeed.Event, error)
}

// Dependencies bundles the collaborators handlers call into.
type Dependencies struct {
	Store    *store.Store
	Repo     *repository.Repository
	Insights *insights.Service
	Dataset  dataset.Client
	Posters  poster.Uploader
	Feed     EventFeed
	Verifier *auth.Verifier
	Logger   zerolog.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	insights *insights.Service
	dataset  dataset.Client
	posters  poster.Uploader
	feed     EventFeed
	verifier *auth.Verifier
	validate *validator.Validate
	limiter  func(http.Handler) http.Handler
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Dependencies) *Server {
	if deps.Dataset == nil {
		deps.Dataset = dataset.NoopClient{}
	}

	s := &Server{
		cfg:      cfg,
		store:    deps.Store,
		repo:     deps.Repo,
		insights: deps.Insights,
		dataset:  deps.Dataset,
		posters:  deps.Posters,
		feed:     deps.Feed,
		verifier: deps.Verifier,
		validate: newValidator(),
		logger:   deps.Logger.With().Str("component", "http").Logger(),
	}
	s.limiter = s.newWriteLimiter()
	s.upgrader = s.newUpgrader()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Location", "X-Request-Id"},
		MaxAge:         300,
	}))
	s.router = r
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.authenticate)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/analytics", s.handleCatalogAnalytics)

	s.router.Route("/me", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleMe)
		r.Get("/favorites", s.handleListFavorites)
	})

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleListMovies)
		r.With(s.requireSession, s.requireAdmin, s.limiter).Post("/", s.handleCreateMovie)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMovie)
			r.Get("/analytics", s.handleMovieAnalytics)
			r.Get("/comments", s.handleListComments)
			r.Get("/events", s.handleMovieEvents)

			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)
				r.Get("/rating", s.handleGetRating)
				r.Get("/favorite", s.handleGetFavorite)

				r.Group(func(r chi.Router) {
					r.Use(s.limiter)
					r.Put("/rating", s.handleSubmitRating)
					r.Post("/comments", s.handleCreateComment)
					r.Post("/favorite", s.handleToggleFavorite)
					r.With(s.requireAdmin).Put("/poster", s.handleSetPosterURL)
					r.With(s.requireAdmin).Post("/poster", s.handleUploadPoster)
				})
			})
		})
	})
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ServeHTTP exposes the router, mainly for tests and embedding.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// newWriteLimiter returns one shared per-IP limiter for all mutating routes.
func (s *Server) newWriteLimiter() func(http.Handler) http.Handler {
	if s.cfg.RateLimitPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.RateLimitPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
		}),
	)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
