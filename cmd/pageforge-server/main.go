// Package main provides the entry point for the PageForge server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pageforge-ai/pageforge/internal/config"
	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/generator"
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/internal/preview"
	"github.com/pageforge-ai/pageforge/internal/project"
	"github.com/pageforge-ai/pageforge/internal/server"
	"github.com/pageforge-ai/pageforge/internal/storage"
)

var (
	port      = flag.Int("port", 0, "Server port (overrides config)")
	directory = flag.String("directory", "", "Working directory")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("pageforge-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// .env is optional, ignore missing file
	_ = godotenv.Load()

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get working directory: %v", err)
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(appConfig.LogLevel),
		Pretty: true,
	})

	logging.Info().Str("version", Version).Str("workDir", workDir).Msg("Starting PageForge server")

	dataDir := appConfig.Server.DataDir
	if dataDir == "" {
		dataDir = paths.StoragePath()
	}

	store := storage.New(dataDir)
	bus := event.Default()
	projects := project.NewService(store, bus)
	budget := generator.NewBudget(appConfig.TokenLimit)
	planner := generator.NewTemplatePlanner()

	watcher, err := preview.NewWatcher(dataDir, bus)
	if err != nil {
		logging.Warn().Err(err).Msg("Preview watcher disabled")
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = appConfig.Server.Port
	if *port != 0 {
		serverConfig.Port = *port
	}
	if appConfig.Server.EnableCORS != nil {
		serverConfig.EnableCORS = *appConfig.Server.EnableCORS
	}

	srv := server.New(serverConfig, projects, planner, budget, bus)

	go func() {
		logging.Info().Int("port", serverConfig.Port).Msg("Server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown error")
	}

	logging.Info().Msg("Server stopped")
}
