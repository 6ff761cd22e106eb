package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parking-reservation/internal/booking"
	"github.com/iliyamo/parking-reservation/internal/config" // Internal config loader
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/router" // Internal router setup
	"github.com/iliyamo/parking-reservation/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode, err := booking.ParseConsistencyMode(cfg.Consistency)
	if err != nil {
		fatal(log, "invalid BOOKING_CONSISTENCY", err)
	}
	policy, err := booking.ParseAvailabilityPolicy(cfg.AvailabilityPolicy)
	if err != nil {
		fatal(log, "invalid AVAILABILITY_POLICY", err)
	}

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		fatal(log, "db connect failed", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			fatal(log, "db migrate failed", err)
		}
	}

	// Redis is optional: without it rate limiting and caching pass through.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable, rate limit and cache disabled", "err", err)
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	var publisher booking.Publisher = booking.NopPublisher{}
	if cfg.EventsEnabled {
		amqpPub := service.NewAMQPPublisher(cfg.RabbitURL, log)
		defer amqpPub.Close()
		publisher = amqpPub

		consumer := &queue.Consumer{URL: cfg.RabbitURL, LogPath: cfg.EventLogPath, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "err", err)
			}
		}()
	}

	store := repository.NewMySQLStore(db)
	opts := booking.Options{
		Logger:             log,
		AvailabilityPolicy: policy,
		Consistency:        mode,
		QRBaseURL:          cfg.QRBaseURL,
		Publisher:          publisher,
	}
	checker := booking.NewChecker(store, opts)
	lots := booking.NewLots(store, checker)
	manager := booking.NewManager(store, checker, opts)
	recorder := booking.NewRecorder(store, opts)

	authH := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log)
	lotH := handler.NewLotHandler(lots, log)
	lotH.OnChange = func(c echo.Context) {
		middleware.PurgeCache(c.Request().Context(), cacheCfg, rdb, log)
	}
	resH := handler.NewReservationHandler(manager, recorder, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	middleware.Register(e, log)
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, lotH, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e, resH, cfg.JWTSecret)
	router.RegisterOperator(e, lotH, cfg.JWTSecret)

	addr := ":" + cfg.Port // Address string with port
	log.Info("listening", "addr", addr, "env", cfg.Env, "consistency", mode, "availability_policy", policy, "events", cfg.EventsEnabled)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			fatal(log, "server failed", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
