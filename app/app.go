// File: app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
)

// App is the fully wired HTTP application.
type App struct {
	Router http.Handler
	Auth   *service.AuthService
}

// New wires hasher, signer, service, handlers and router on top of repo.
func New(cfg *config.Config, repo repository.IUserRepository) (*App, error) {
	hasher, err := service.NewPasswordHasher(cfg)
	if err != nil {
		return nil, err
	}
	signer := service.NewTokenSigner(cfg.JWT.Issuer)

	tokens := service.TokenConfigFrom(cfg)
	authService, err := service.NewAuthService(repo, hasher, signer, tokens)
	if err != nil {
		return nil, err
	}

	authHandler := handler.NewAuthHandler(authService)
	accessGuard := handler.NewAccessTokenGuard(signer, tokens.AccessSecret)
	refreshGuard := handler.NewRefreshTokenGuard(signer, tokens.RefreshSecret)

	r := router.NewRouter(authHandler, accessGuard, refreshGuard)

	return &App{
		Router: handler.TimeoutMiddleware(cfg.Server.RequestTimeout)(r),
		Auth:   authService,
	}, nil
}

// OpenRepository connects the configured storage backend. The returned close
// function releases its connections.
func OpenRepository(ctx context.Context, cfg *config.Config) (repository.IUserRepository, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx, database); err != nil {
				database.Close()
				return nil, nil, err
			}
		}
		return repository.NewUserRepository(database), database.Close, nil

	case config.BackendRedis:
		rdb, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisUserRepository(rdb, cfg.Redis.KeyPrefix), rdb.Close, nil

	case config.BackendMemory:
		logger.Log.Warn("Using in-memory storage; users are lost on restart")
		return repository.NewMemoryUserRepository(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func Run() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		logger.Log.Fatalf("Error configuring logger: %v", err)
	}
	logger.Log.WithField("storage", cfg.Storage.Backend).Info("Configuration loaded successfully")

	ctx := context.Background()
	repo, closeRepo, err := OpenRepository(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Error opening storage: %v", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Log.WithError(err).Error("Failed to close storage")
		}
	}()

	application, err := New(cfg, repo)
	if err != nil {
		logger.Log.Fatalf("Error wiring application: %v", err)
	}

	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: application.Router,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Log.Info("Server exited properly")
}
