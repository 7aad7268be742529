package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/auth"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/config"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/cookiejar"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/infra/fs"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/infra/sqlite"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/pending"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/service/downloader"
	transport "github.com/bfjia/VeryUsefulDownloadingTool/internal/transport/http"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/transport/http/middleware"
	"github.com/bfjia/VeryUsefulDownloadingTool/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Setup(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if cfg.SessionSecret == config.InsecureSessionSecret {
		if cfg.IsProduction() {
			slog.Error("SESSION_SECRET is unset; refusing to sign sessions with the development key in production")
			os.Exit(1)
		}
		slog.Warn("SESSION_SECRET is unset; using the development signing key")
	}

	password, err := cfg.LoadPassword()
	if err != nil {
		slog.Error("Unable to resolve login password", "error", err)
		os.Exit(1)
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	gate, err := auth.NewGate(password, sessions)
	if err != nil {
		slog.Error("Failed to initialize authentication", "error", err)
		os.Exit(1)
	}

	dl := downloader.New(&downloader.Config{
		TempDir:    cfg.TempDir,
		Timeout:    cfg.DownloadTimeout,
		YtDlpPath:  cfg.YtDlpPath,
		FFmpegPath: cfg.FFmpegPath,
	})
	if err := dl.Check(); err != nil {
		slog.Warn("yt-dlp not found; downloads will fail until it is installed",
			"path", cfg.YtDlpPath, "error", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("Failed to create data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	repo, err := sqlite.NewRepository(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open history database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	cookies := cookiejar.New(cfg.DataDir)
	pend := pending.New(cfg.PendingTTL, cfg.PendingSweep)

	sweeper := fs.NewSweeper(cfg.TempDir, cfg.SweepMaxAge, cfg.SweepInterval)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	loginLimiter := middleware.NewLoginLimiter(cfg.LoginRPM, cfg.LoginBurst)
	defer loginLimiter.Stop()

	handlers := transport.NewHandlers(cfg, gate, cookies, pend, dl, repo)
	router := transport.NewRouter(cfg, handlers, gate, loginLimiter)
	server := transport.NewServer(cfg.Addr, router, cfg.DownloadTimeout)

	go func() {
		slog.Info("Server starting", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// In-flight streams finish within the same bound as an extraction.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DownloadTimeout+30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
