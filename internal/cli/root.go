// Package cli реализует команды утилиты администрирования creditbookctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "creditbookctl",
	Short:         "Administration tool for the creditbook service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute выполняет команду из аргументов процесса.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// environment конфигурация и логгер, общие для всех команд.
func environment() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURI == "" {
		return nil, nil, fmt.Errorf("DATABASE_URI is not set")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
