package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercadopago-checkout/internal/app"
	"mercadopago-checkout/internal/config"
	"mercadopago-checkout/pkg/logger"
	"mercadopago-checkout/pkg/validator"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger.Init()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "checkout",
		Short:         "Mercado Pago Checkout Pro service",
		Long:          `Creates Checkout Pro preferences, receives payment notifications and serves the post-payment landing endpoints.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to a dotenv file to load before reading the environment")

	return cmd
}

func runServer(envFile string) error {
	if err := godotenv.Load(envFile); err != nil {
		logger.Info("No .env file found, using environment variables", map[string]interface{}{"path": envFile})
	}

	cfg := config.New()
	logger.SetLevel(cfg.LogLevel)
	validator.Init()

	if err := cfg.Validate(); err != nil {
		logger.Error(err, "Invalid configuration", nil)
		return err
	}

	logger.Info("Starting checkout service", nil)

	application, err := app.New(cfg, app.Options{})
	if err != nil {
		logger.Error(err, "Failed to initialize application", nil)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil {
			logger.Error(err, "Failed to start server", nil)
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...", nil)
	case runErr = <-serverErr:
		logger.Error(runErr, "Server error occurred, initiating shutdown", nil)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown", nil)
		return err
	}

	logger.Info("Server exited gracefully", nil)
	return runErr
}
