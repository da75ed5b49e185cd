package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aaricantto/GraphFS/internal/api"
	"github.com/aaricantto/GraphFS/internal/config"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/logging"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.Output,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.L()

	log.Info("GraphFS API server",
		zap.String("config", configPath),
		zap.String("db", cfg.Store.DBPath),
		zap.String("host", cfg.API.Host),
		zap.Int("port", cfg.API.Port),
	)

	// Initialize GraphFS
	fs, err := graphfs.New(cfg, log.Named("graphfs"))
	if err != nil {
		log.Fatal("failed to initialize GraphFS", zap.Error(err))
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// I am here to serve.
	if err := api.NewServer(fs, &cfg.API, log).Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server shutdown complete")
}

// getConfigPath returns the configuration file path. Without an argument
// the built-in defaults are used.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}
