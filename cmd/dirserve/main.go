package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"example.com/dirserve/internal/config"
	"example.com/dirserve/internal/dispatch"
	"example.com/dirserve/internal/logger"
	"example.com/dirserve/internal/respond"
	"example.com/dirserve/internal/server"
)

var configFilePath string

func main() {
	flag.StringVar(&configFilePath, "config", "", "Path to the configuration file (TOML, JSON or YAML)")
	flag.Parse()

	if configFilePath == "" {
		fmt.Fprintln(os.Stderr, "Error: configuration file path must be provided via -config flag.")
		flag.Usage()
		os.Exit(1)
	}

	absConfigPath, err := filepath.Abs(configFilePath)
	if err != nil {
		log.Fatalf("Error getting absolute path for config file %s: %v", configFilePath, err)
	}
	configFilePath = absConfigPath

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configFilePath, err)
	}

	appLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.CloseLogFiles()

	responder, err := respond.NewResponder(cfg.Serve, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize responder", logger.LogFields{"error": err.Error()})
		os.Exit(1)
	}

	// Content handlers registered here intercept their file types before
	// static serving. None ship by default; the registry is wired so
	// deployments can add their own in a fork of this main.
	registry := dispatch.NewTypeHandlerRegistry()

	dispatcher, err := dispatch.New(cfg.Serve, appLogger, responder, registry)
	if err != nil {
		appLogger.Error("Failed to initialize dispatcher", logger.LogFields{"error": err.Error()})
		os.Exit(1)
	}

	handler := server.NewRequestHandler(dispatcher, appLogger)
	srv := server.NewServer(cfg.Server, appLogger, handler)

	color.Green("dirserve: serving %s on %s", cfg.Serve.DocumentRoot, cfg.Server.Address)
	if cfg.Serve.JSONEnabled() {
		color.Cyan("dirserve: JSON listings enabled (Accept: application/json)")
	}

	if err := srv.Start(); err != nil {
		appLogger.Error("Server exited with an error", logger.LogFields{"error": err.Error()})
		os.Exit(1)
	}
	appLogger.Info("Server has shut down gracefully.", nil)
}
