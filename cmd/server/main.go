package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/blog-api/internal/app"
	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/metrics"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/router"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	rdb := config.NewRedisClient(config.RedisOptions())
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	issuer, err := utils.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	notifier, mailWorker := app.ResetDelivery(cfg, log)

	authSvc := service.NewAuthService(stores.Users, hasher, issuer, log)
	resetSvc := service.NewPasswordResetService(stores.Users, hasher, notifier, cfg.ResetTokenTTL, log)
	categorySvc := service.NewCategoryService(stores.Categories, log)
	postSvc := service.NewPostService(stores.Posts, stores.Categories, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(m.Middleware())

	checks := map[string]handler.Check{"store": stores.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	gate := router.Gate{
		Required: middleware.Authenticate(issuer, authSvc, cfg.StoreTimeout),
		Optional: middleware.OptionalAuthenticate(issuer, authSvc, cfg.StoreTimeout),
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, m)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, m)

	router.RegisterRoutes(e, checks, m)
	router.RegisterAuth(e, &handler.AuthHandler{
		Auth:           authSvc,
		Reset:          resetSvc,
		Metrics:        m,
		Log:            log,
		ConcealUnknown: cfg.ResetConcealUnknown,
		Timeout:        cfg.StoreTimeout,
	}, gate, limiter)
	router.RegisterPosts(e, &handler.PostHandler{Posts: postSvc, Log: log, Timeout: cfg.StoreTimeout}, gate, cache)
	router.RegisterCategories(e, &handler.CategoryHandler{Categories: categorySvc, Log: log, Timeout: cfg.StoreTimeout}, gate, cache)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend, "mail", cfg.MailTransport)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	if mailWorker != nil {
		g.Go(func() error { return mailWorker(gctx) })
	}
	return g.Wait()
}
