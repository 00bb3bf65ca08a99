// Package main запускает HTTP-сервер сервиса учёта платежей.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/paybook/internal/backup"
	"github.com/mmeshcher/paybook/internal/config"
	"github.com/mmeshcher/paybook/internal/handler"
	"github.com/mmeshcher/paybook/internal/middleware"
	"github.com/mmeshcher/paybook/internal/repository"
	"github.com/mmeshcher/paybook/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := config.LoadDotEnv(".env"); err != nil {
		sugar.Fatalw("dotenv error", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := openRepository(cfg)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, service.WithBackupDir(cfg.BackupDir))
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	created, err := svc.SeedManager(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		sugar.Fatalw("seed manager error", "error", err.Error())
	}
	if created {
		sugar.Infow("default manager created", "username", cfg.AdminUsername)
	}

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret, cfg.SessionTTL, svc)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Автоматическое резервное копирование по расписанию из настроек
	if cfg.BackupAuto {
		scheduler := backup.NewScheduler(svc.ScheduledBackup, logger)
		svc.SetScheduler(scheduler)
		if err := svc.StartScheduler(ctx); err != nil {
			sugar.Fatalw("backup scheduler error", "error", err.Error())
		}

		g.Go(func() error {
			scheduler.Run(ctx)
			return nil
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting paybook server", "addr", cfg.RunAddress, "store", repo.Driver())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func openRepository(cfg *config.Config) (*repository.Repository, error) {
	if cfg.DatabaseURI != "" {
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
	return repository.NewSQLiteRepository(cfg.DatabasePath)
}
