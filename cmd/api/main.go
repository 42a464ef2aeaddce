package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/zync/zync-go/internal/config"
	"github.com/zync/zync-go/internal/content"
	"github.com/zync/zync-go/internal/handler"
	"github.com/zync/zync-go/internal/middleware"
	"github.com/zync/zync-go/internal/repository"
	"github.com/zync/zync-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	store, err := newContentStore(ctx, cfg, db)
	if err != nil {
		slog.Error("content store init failed", "backend", cfg.ContentBackend, "error", err)
		os.Exit(1)
	}

	clipRepo := repository.NewClipRepository(db)
	clipStore := service.NewClipboardStore(clipRepo, store, cfg.Policy(), cfg.EncryptionTypes())
	historyService := service.NewHistoryService(clipStore)
	clipHandler := handler.NewClipboardHandler(clipStore, historyService, cfg.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1/clipboard", func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Mount("/", clipHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"database", cfg.DatabaseDriver,
			"content", cfg.ContentBackend,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func newContentStore(ctx context.Context, cfg config.Config, db *sql.DB) (content.Store, error) {
	switch cfg.ContentBackend {
	case config.BackendSQL:
		return content.NewSQLStore(db), nil
	case config.BackendMemory:
		slog.Warn("memory content backend selected, payloads are lost on restart")
		return content.NewMemoryStore(), nil
	case config.BackendS3:
		s3Store, err := content.NewS3Store(ctx, content.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	default:
		return nil, fmt.Errorf("unsupported content backend %q", cfg.ContentBackend)
	}
}
