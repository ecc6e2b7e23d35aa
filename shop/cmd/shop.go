package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/storefront/cart/local"
	"github.com/Alturino/storefront/cart/port"
	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/backend"
	"github.com/Alturino/storefront/internal/config"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/shop/internal/controller"
	"github.com/Alturino/storefront/shop/internal/session"
)

const (
	AppShopService = "shop"

	sweepInterval = 10 * time.Minute
)

func RunShopService(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunShopService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, AppShopService).
		Str(log.KeyTag, "main RunShopService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, AppShopService)
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, AppShopService, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		c = logger.WithContext(c)
		err = otel.ShutdownOtel(c, otelShutdowns)
		if err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing metrics").Logger()
	logger.Info().Msg("initializing metrics")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	logger.Info().Msg("initialized metrics")

	logger = logger.With().
		Str(log.KeyProcess, "initializing local cart storage").
		Str("driver", cfg.LocalStore.Driver).
		Logger()
	logger.Info().Msg("initializing local cart storage")
	c = logger.WithContext(c)
	storage, err := newLocalStorage(c, cfg)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer storage.close()
	logger.Info().Msg("initialized local cart storage")

	logger = logger.With().Str(log.KeyProcess, "initializing backend client").Logger()
	logger.Info().Msg("initializing backend client")
	backendClient, err := backend.NewClient(cfg.Backend, backend.WithMetrics(appMetrics))
	if err != nil {
		err = fmt.Errorf("failed initializing backend client with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized backend client")

	logger = logger.With().Str(log.KeyProcess, "initializing visitor registry").Logger()
	logger.Info().Msg("initializing visitor registry")
	validate := validator.New(validator.WithRequiredStructEnabled())
	visitors := session.NewRegistry(session.Dependencies{
		Verifier:  auth.NewVerifier(cfg.Application),
		Backend:   backendClient,
		LocalCart: storage.carts,
		Checkout:  cfg.Checkout,
		Metrics:   appMetrics,
		Validator: validate,

		LatestReloadWins: cfg.Cart.LatestReloadWins,
	})
	go sweepVisitors(c, visitors, cfg.Session.IdleTimeout, storage.purge)
	logger.Info().Msg("initialized visitor registry")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler(registry)).Methods(http.MethodGet)
	api := router.NewRoute().Subrouter()
	api.Use(
		otelmux.Middleware(AppShopService),
		middleware.Logging,
		middleware.RecoverPanic,
		middleware.Metrics(appMetrics),
		session.Middleware(visitors, cfg.Application.Env == "production"),
	)
	controller.AttachSessionController(api, validate)
	controller.AttachCartController(api, validate)
	controller.AttachCheckoutController(api, validate)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	<-c.Done()
	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	logger.Info().Msg("received interuption signal shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down http server")
	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}

type localStorage struct {
	carts session.LocalCartFactory
	// purge deletes carts past their ttl when the driver does not expire them itself.
	purge func(c context.Context)
	close func()
}

// newLocalStorage opens the storage backing anonymous carts.
func newLocalStorage(c context.Context, cfg *config.Config) (localStorage, error) {
	logger := zerolog.Ctx(c)

	switch cfg.LocalStore.Driver {
	case config.LocalStoreMemory:
		return localStorage{carts: memoryCarts(), purge: func(context.Context) {}, close: func() {}}, nil
	case config.LocalStoreRedis:
		cache := infra.NewCacheClient(c, cfg.Cache)
		closeCache := func() {
			logger.Info().Msg("shutting down cache")
			if err := cache.Close(); err != nil {
				logger.Error().Err(err).Msg("failed shutting down cache")
				return
			}
			logger.Info().Msg("shutdown cache")
		}
		return localStorage{
			carts: redisCarts(cache, cfg.LocalStore.TTL),
			purge: func(context.Context) {},
			close: closeCache,
		}, nil
	case config.LocalStorePostgres:
		pool := infra.NewDatabaseClient(c, cfg.Database)
		closePool := func() {
			logger.Info().Msg("shutting down database")
			pool.Close()
			logger.Info().Msg("shutdown database")
		}
		return localStorage{
			carts: postgresCarts(pool, cfg.LocalStore.TTL),
			purge: postgresPurge(pool, cfg.LocalStore.TTL),
			close: closePool,
		}, nil
	}
	return localStorage{}, fmt.Errorf("failed initializing local cart storage with error=unknown driver %q", cfg.LocalStore.Driver)
}

func memoryCarts() session.LocalCartFactory {
	return func(uuid.UUID) port.LocalCart {
		return local.NewMemoryCart()
	}
}

func redisCarts(cache *redis.Client, ttl time.Duration) session.LocalCartFactory {
	return func(sessionID uuid.UUID) port.LocalCart {
		return local.NewRedisCart(cache, sessionID, ttl)
	}
}

func postgresCarts(pool *pgxpool.Pool, ttl time.Duration) session.LocalCartFactory {
	return func(sessionID uuid.UUID) port.LocalCart {
		return local.NewPostgresCart(pool, sessionID, ttl)
	}
}

func postgresPurge(pool *pgxpool.Pool, ttl time.Duration) func(context.Context) {
	return func(c context.Context) {
		// errors are logged inside, the next tick retries
		_, _ = local.PurgeExpiredCarts(c, pool, ttl)
	}
}

// sweepVisitors drops visitors idle longer than idleTimeout and purges expired local carts
// every sweepInterval until c is done.
func sweepVisitors(c context.Context, visitors *session.Registry, idleTimeout time.Duration, purge func(context.Context)) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			sweep(c, visitors, idleTimeout, purge)
		}
	}
}

func sweep(c context.Context, visitors *session.Registry, idleTimeout time.Duration, purge func(context.Context)) {
	if idleTimeout > 0 {
		visitors.Sweep(c, idleTimeout)
	}
	purge(c)
}
