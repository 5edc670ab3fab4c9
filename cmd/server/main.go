package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/bookly/internal/config"
	"github.com/Skotchmaster/bookly/internal/es"
	"github.com/Skotchmaster/bookly/internal/handlers"
	"github.com/Skotchmaster/bookly/internal/logging"
	authmw "github.com/Skotchmaster/bookly/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/bookly/internal/middleware/logging"
	"github.com/Skotchmaster/bookly/internal/mykafka"
	"github.com/Skotchmaster/bookly/internal/repo"
	"github.com/Skotchmaster/bookly/internal/revocation"
	"github.com/Skotchmaster/bookly/internal/service/search"
	"github.com/Skotchmaster/bookly/internal/token"
	httpserver "github.com/Skotchmaster/bookly/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatal(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	cancelPing()

	revocations := revocation.New(rdb, revocation.Options{
		TTL:        codec.AccessTTL(),
		Enabled:    cfg.RevocationEnabled,
		FailClosed: cfg.RevocationFailClosed,
		Logger:     logger,
	})

	var producer *mykafka.Producer
	if cfg.KafkaAddress != "" {
		producer = mykafka.NewProducer([]string{cfg.KafkaAddress})
	}

	var searchSvc *search.Service
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatal(err)
		}
		searchSvc = search.NewService(esClient, "books")
	} else {
		logger.Warn("ES_URL not set, book search disabled")
	}

	users := &repo.UserRepo{DB: db}
	books := &repo.BookRepo{DB: db}

	guard := &authmw.Guard{
		Codec:       codec,
		Revocations: revocations,
		Users:       users,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Guard: guard,
		AuthHandler: &handlers.AuthHandler{
			Users:       users,
			Codec:       codec,
			Revocations: revocations,
			Producer:    producer,
		},
		BookHandler: &handlers.BookHandler{
			Books:    books,
			Producer: producer,
			Search:   searchSvc,
		},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "addr", cfg.HTTPAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	if err := revocations.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
