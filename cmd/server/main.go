package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinescope/internal/analytics"
	"github.com/Clark-Hu/cinescope/internal/auth"
	"github.com/Clark-Hu/cinescope/internal/changefeed"
	"github.com/Clark-Hu/cinescope/internal/config"
	"github.com/Clark-Hu/cinescope/internal/dataset"
	httpserver "github.com/Clark-Hu/cinescope/internal/http"
	"github.com/Clark-Hu/cinescope/internal/insights"
	"github.com/Clark-Hu/cinescope/internal/logging"
	"github.com/Clark-Hu/cinescope/internal/metrics"
	"github.com/Clark-Hu/cinescope/internal/poster"
	"github.com/Clark-Hu/cinescope/internal/repository"
	"github.com/Clark-Hu/cinescope/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if err := metrics.RegisterDBPool(prometheus.DefaultRegisterer, st.PoolStats); err != nil {
		logger.Warn().Err(err).Msg("register pool metrics")
	}

	repo := repository.New(st)

	lookup, err := newDatasetClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init dataset client")
	}

	posters, err := poster.New(poster.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init poster storage")
	}
	var uploader poster.Uploader
	if posters != nil {
		uploader = posters
	} else {
		logger.Warn().Msg("MINIO_ENDPOINT not set; poster uploads disabled")
	}

	feed := changefeed.New(cfg.ChangefeedBuffer, logger)
	defer func() {
		if err := feed.Close(); err != nil {
			logger.Warn().Err(err).Msg("close change feed")
		}
	}()

	svc := insights.NewService(repo.Movies, repo.Ratings, repo.Users, insights.Options{
		Cache:  cfg.AnalyticsCache,
		Kernel: analytics.Kernel{Width: cfg.KernelWidth, Scale: cfg.KernelScale},
		Logger: logger,
	})
	if cfg.AnalyticsCache {
		go func() {
			if err := svc.Watch(ctx, feed); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("analytics invalidation stopped")
			}
		}()
	}

	server := httpserver.New(cfg, httpserver.Dependencies{
		Store:    st,
		Repo:     repo,
		Insights: svc,
		Dataset:  lookup,
		Posters:  uploader,
		Feed:     feed,
		Verifier: auth.NewVerifier(cfg.AuthJWTSecret),
		Logger:   logger,
	})

	logger.Info().Str("port", cfg.Port).Msg("listening")

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func newDatasetClient(cfg config.Config, logger zerolog.Logger) (dataset.Client, error) {
	if cfg.DatasetURL == "" {
		logger.Warn().Msg("DATASET_URL not set; movie enrichment disabled")
		return dataset.NoopClient{}, nil
	}
	return dataset.NewHTTPClient(cfg.DatasetURL, cfg.DatasetAPIKey, time.Duration(cfg.DatasetTimeoutSecs)*time.Second, logger)
}
