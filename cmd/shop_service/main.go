package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"shop_service/internal/auth"
	"shop_service/internal/config"
	"shop_service/internal/handler"
	"shop_service/internal/mail"
	"shop_service/internal/otp"
	"shop_service/internal/service"
	"shop_service/internal/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 10 * time.Second

func main() {
	//PARSE ARGS
	var configPath string
	flag.StringVar(&configPath, "config", "", "")

	flag.Parse()
	if configPath == "" {
		log.Fatal("failed get config path from flags")
	}

	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("started shop service", slog.String("env", cfg.Env))

	ctx := context.Background()

	//INIT STORAGE
	st, err := storage.NewMongoStorage(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer st.Close(ctx)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	//INIT SERVICE
	blacklist := storage.NewRedisBlacklist(rdb)
	tokens := auth.NewTokenManager(cfg.Auth.JWTKey, cfg.Auth.TokenTTL, blacklist)
	issuer := otp.NewIssuer(st, mail.NewSender(cfg.Mail), lgr)
	srvc := service.NewService(st, tokens, issuer, lgr)

	//INIT SERVER
	h := handler.NewHandler(srvc, cfg, lgr)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.InitRoutes(),
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	go func() {
		lgr.Info("listening", slog.String("address", cfg.HTTPServer.Address))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lgr.Error("failed to shutdown server", slog.Any("error", err))
	}
}

func setupLogger(env string) *slog.Logger {
	var lgr *slog.Logger

	switch env {
	case envLocal:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return lgr
}
