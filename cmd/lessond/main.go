package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/app"
	"github.com/aliskhannn/lesson-engine/internal/config"
	"github.com/aliskhannn/lesson-engine/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "lessond",
		Short:         "Adaptive vocabulary lesson service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine, the environment may already be set.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config", "./config", "directory containing config.yaml")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(configDir, func(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
					a, err := app.New(ctx, cfg, log)
					if err != nil {
						return err
					}
					defer a.Close()

					return a.Run(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(configDir, func(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
					return app.Migrate(ctx, cfg, log)
				})
			},
		},
	)

	return root
}

func withRuntime(configDir string, fn func(ctx context.Context, cfg *config.Config, log *zap.Logger) error) error {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, cfg, log); err != nil {
		log.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}
