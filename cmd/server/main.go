package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/api"
	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/config"
	"github.com/macfarley/dream-weaver-backend/internal/service"
	"github.com/macfarley/dream-weaver-backend/internal/storage"
)

type application struct {
	logger   internal.Logger
	users    *service.UserService
	bedrooms *service.BedroomService
	sessions *service.SessionService
}

func (a *application) Logger() internal.Logger           { return a.logger }
func (a *application) Users() *service.UserService       { return a.users }
func (a *application) Bedrooms() *service.BedroomService { return a.bedrooms }
func (a *application) Sessions() *service.SessionService { return a.sessions }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}
	defer repos.Close()

	provider := buildAuthProvider(cfg, logger)

	app := &application{
		logger:   logger,
		users:    service.NewUserService(repos.Users, provider, logger),
		bedrooms: service.NewBedroomService(repos.Bedrooms, repos.Sessions, logger),
		sessions: service.NewSessionService(repos.Sessions, repos.Bedrooms, logger),
	}

	window := time.Duration(cfg.RateWindowSec) * time.Second
	var limiter api.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = api.NewRedisLimiter(client, cfg.RateLimit, window)
		logger.Infof("rate limiting via redis at %s", cfg.RedisAddr)
	} else {
		mem := api.NewMemoryLimiter(cfg.RateLimit, window)
		defer mem.Close()
		limiter = mem
	}

	router := api.NewRouter(app, provider, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("server listening on :%s (env=%s, storage=%s)", cfg.Port, cfg.Env, cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("forced shutdown: %v", err)
	}
}

func buildRepositories(cfg *config.Config, logger internal.Logger) (*storage.Repositories, error) {
	if cfg.StorageBackend == "postgres" {
		return storage.NewPostgresRepositories(cfg.PostgresDSN, logger)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SessionsFile), 0755); err != nil {
		return nil, err
	}
	return storage.NewFileRepositories(cfg.UsersFile, cfg.BedroomsFile, cfg.SessionsFile, logger)
}

func buildAuthProvider(cfg *config.Config, logger internal.Logger) auth.Provider {
	if cfg.AuthMode == "remote" {
		return auth.NewRemoteProvider(cfg.AuthServiceURL, logger)
	}
	return auth.NewJWTProvider(cfg.JWTSecret, cfg.TokenTTL, logger)
}
