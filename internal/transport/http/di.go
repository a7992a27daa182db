package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	authzapp "github.com/astro-web3/coffee-drinks/internal/app/authz"
	drinkapp "github.com/astro-web3/coffee-drinks/internal/app/drink"
	"github.com/astro-web3/coffee-drinks/internal/config"
	authzdomain "github.com/astro-web3/coffee-drinks/internal/domain/authz"
	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/internal/infra/cache"
	"github.com/astro-web3/coffee-drinks/internal/infra/jwks"
	"github.com/astro-web3/coffee-drinks/internal/infra/memory"
	"github.com/astro-web3/coffee-drinks/internal/infra/postgres"
	httpclient "github.com/astro-web3/coffee-drinks/pkg/http"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/astro-web3/coffee-drinks/pkg/otel"
	"github.com/astro-web3/coffee-drinks/pkg/tracer"
)

type Server struct {
	httpServer *http.Server
	closers    []func() error
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "coffee-drinks"
)

func NewServer(cfg *config.Config) (*Server, error) {
	logger.InitLogger(cfg.Observability.LogLevel, cfg.Observability.Format, cfg.Observability.LogSource)

	otelCfg := otel.Config{
		ServiceName:        serviceName,
		EndpointURL:        cfg.Observability.TracingEndpointURL,
		Enabled:            cfg.Observability.TraceEnabled,
		MetricsEnabled:     cfg.Observability.MetricsEnabled,
		SampleRatio:        1.0,
		Insecure:           true,
		ResourceAttributes: make(map[string]string),
	}
	if err := tracer.InitTracer(serviceName, otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	metricsHandler, err := otel.InitMeter(otelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter: %w", err)
	}

	srv := &Server{}

	repo, err := srv.newDrinkRepository(cfg)
	if err != nil {
		srv.close()
		return nil, err
	}

	keys, err := srv.newKeyProvider(cfg)
	if err != nil {
		srv.close()
		return nil, err
	}

	authzDomainService := authzdomain.NewService(keys, authzdomain.Config{
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		Algorithms: cfg.Auth.Algorithms,
		Leeway:     cfg.Auth.Leeway,
	})
	authzService := authzapp.NewService(authzDomainService)

	drinkDomainService := drinkdomain.NewService(repo)
	handler := NewHandler(
		drinkapp.NewCommandService(drinkDomainService),
		drinkapp.NewQueryService(drinkDomainService),
	)
	router := NewRouter(handler, authzService, cfg, metricsHandler)

	srv.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	return srv, nil
}

func (s *Server) newDrinkRepository(cfg *config.Config) (drinkdomain.Repository, error) {
	if cfg.Database.DSN == "" {
		logger.WarnContext(context.Background(), "no database configured, drinks are kept in memory")
		return memory.NewDrinkRepository(), nil
	}

	db, err := postgres.Connect(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s.closers = append(s.closers, db.Close)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}

	return postgres.NewDrinkRepository(db), nil
}

func (s *Server) newKeyProvider(cfg *config.Config) (jwks.Provider, error) {
	client := httpclient.NewClient(
		httpclient.WithTimeout(cfg.Auth.FetchTimeout),
		httpclient.WithRetryCount(cfg.Auth.FetchRetries),
	)

	opts := jwks.Options{TTL: cfg.Auth.KeyCacheTTL}
	if cfg.Redis.URL != "" && cfg.Auth.KeyCacheTTL > 0 {
		redisClient, err := cache.NewRedisClient(cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		s.closers = append(s.closers, redisClient.Close)

		opts.Shared = cache.NewKeySetCache(redisClient)
		opts.SharedKey = cache.KeySetKey(cfg.Auth.JWKSURL)
	}

	logger.InfoContext(context.Background(), "signing keys configured",
		slog.String("jwks_url", cfg.Auth.JWKSURL),
		slog.Duration("cache_ttl", cfg.Auth.KeyCacheTTL),
		slog.Bool("shared_cache", opts.Shared != nil),
	)

	return jwks.NewProvider(jwks.NewRemoteSource(cfg.Auth.JWKSURL, client), opts), nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
