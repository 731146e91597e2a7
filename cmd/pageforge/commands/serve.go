package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

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
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PageForge backend server",
	Long: `Start the PageForge backend server that generates and persists
web page projects.

The server exposes the streaming generation endpoint, project CRUD, and
a live event stream for previews.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

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
	if servePort != 0 {
		serverConfig.Port = servePort
	}
	if appConfig.Server.EnableCORS != nil {
		serverConfig.EnableCORS = *appConfig.Server.EnableCORS
	}

	srv := server.New(serverConfig, projects, planner, budget, bus)

	go func() {
		logging.Info().Int("port", serverConfig.Port).Msg("Server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("Server error")
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
	return nil
}
