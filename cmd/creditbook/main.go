// Package main запускает HTTP-сервер сервиса учёта долгов.
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

	"github.com/mmeshcher/creditbook/internal/app"
	"github.com/mmeshcher/creditbook/internal/config"
	"github.com/mmeshcher/creditbook/internal/handler"
	"github.com/mmeshcher/creditbook/internal/middleware"
)

const reminderInterval = time.Hour

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("initialization error", "error", err.Error())
	}
	defer deps.Close()

	tokens := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	h := handler.NewHandler(deps.Service, logger, tokens, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Отправка уведомлений из очереди
	g.Go(func() error {
		return deps.Dispatcher.Run(ctx)
	})

	// Ежедневные напоминания; повторные прогоны за ту же дату пропускаются
	g.Go(func() error {
		return deps.Reminders.Loop(ctx, reminderInterval)
	})

	g.Go(func() error {
		sugar.Infow("starting creditbook server",
			"addr", cfg.RunAddress,
			"test_mode", cfg.TestMode,
		)
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
