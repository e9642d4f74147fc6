package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/pkg/config"
	"github.com/noah-isme/conf-schedule-api/pkg/logger"
)

// @title Conference Schedule API
// @version 1.0.0
// @description Draft editing, immutable releases and speaker notifications for conference schedules.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var envFile string

func main() {
	root := &cobra.Command{
		Use:           "schedule-api",
		Short:         "Conference schedule release service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Path to the env file")

	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand(), newCacheCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}
