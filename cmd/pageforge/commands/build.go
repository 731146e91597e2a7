package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageforge-ai/pageforge/internal/build"
	"github.com/pageforge-ai/pageforge/internal/client"
	"github.com/pageforge-ai/pageforge/internal/config"
	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/filesync"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

var (
	buildOutput  string
	buildDir     string
	buildTimeout time.Duration
	buildQuiet   bool
)

var buildCmd = &cobra.Command{
	Use:   "build [prompt...]",
	Short: "Generate a web page from a prompt",
	Long: `Generate a complete web page from a natural-language prompt.

The generation streams live from the backend. Progress and the plan are
printed as they arrive, and the finished files are written to the output
directory once they have been persisted by the server.

Examples:
  pageforge build "a coffee shop website"
  pageforge build --output ./site "a portfolio page for a photographer"`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Directory to write generated files to")
	buildCmd.Flags().StringVar(&buildDir, "directory", "", "Working directory")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 5*time.Minute, "Overall build timeout")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Suppress progress output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return fmt.Errorf("prompt required. Usage: pageforge build \"describe your page\"")
	}

	workDir, err := GetWorkDir(buildDir)
	if err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	url := serverURL
	if url == "" {
		url = appConfig.Client.ServerURL
	}

	backend := client.New(url)
	policy := filesync.Policy{
		MaxAttempts: appConfig.Client.SyncMaxAttempts,
		BaseDelay:   time.Duration(appConfig.Client.SyncBaseDelayMs) * time.Millisecond,
		Multiplier:  appConfig.Client.SyncMultiplier,
	}

	bus := event.NewBus()
	defer bus.Close()

	controller := build.NewController(backend, policy, bus)

	done := make(chan types.SessionState, 1)
	narrator := newNarrator(buildQuiet)
	unsub := controller.Subscribe(func(state types.SessionState) {
		narrator.observe(state)
		if state.Phase.Terminal() {
			select {
			case done <- state:
			default:
			}
		}
	})
	defer unsub()

	ctx, cancel := context.WithTimeout(cmd.Context(), buildTimeout)
	defer cancel()

	if err := controller.Start(ctx, prompt); err != nil {
		return fmt.Errorf("failed to start generation: %w", err)
	}

	var final types.SessionState
	select {
	case final = <-done:
	case <-ctx.Done():
		controller.Cancel()
		return fmt.Errorf("build timed out after %s", buildTimeout)
	}

	switch final.Phase {
	case types.PhaseFailed:
		return fmt.Errorf("generation failed: %s", final.Error)
	case types.PhaseConversational:
		fmt.Println(final.Description)
		return nil
	}

	if final.FilesUnavailable {
		fmt.Println("Generation finished but the files are not available yet. Try fetching the project again shortly.")
		return nil
	}

	if buildOutput != "" {
		if err := writeFiles(buildOutput, final.Files); err != nil {
			return err
		}
		fmt.Printf("\nWrote %d files to %s\n", len(final.Files), buildOutput)
	} else {
		fmt.Printf("\nProject %s ready with %d files. Use --output to write them to disk.\n",
			final.ProjectID, len(final.Files))
	}

	if final.Tokens.Limit > 0 {
		fmt.Printf("Tokens: %d remaining of %d\n", final.Tokens.Remaining, final.Tokens.Limit)
	}

	return nil
}

func writeFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// narrator prints the interesting transitions out of the snapshot stream.
// Snapshots arrive for every applied event, so it tracks what has already
// been reported to avoid repeating itself.
type narrator struct {
	quiet         bool
	lastStatus    string
	lastDesc      string
	reportedTodos map[types.TodoID]bool
}

func newNarrator(quiet bool) *narrator {
	return &narrator{quiet: quiet, reportedTodos: make(map[types.TodoID]bool)}
}

func (n *narrator) observe(state types.SessionState) {
	if n.quiet {
		return
	}

	if state.Status != "" && state.Status != n.lastStatus {
		n.lastStatus = state.Status
		fmt.Printf("  %s\n", state.Status)
	}

	if state.Description != "" && state.Description != n.lastDesc {
		n.lastDesc = state.Description
		fmt.Printf("  Plan: %s\n", state.Description)
	}

	for _, todo := range state.Todos {
		if todo.Completed && !n.reportedTodos[todo.ID] {
			n.reportedTodos[todo.ID] = true
			fmt.Printf("  [done] %s\n", todo.Task)
		}
	}
}
