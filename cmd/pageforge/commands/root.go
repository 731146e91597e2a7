// Package commands provides the CLI commands for PageForge.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pageforge-ai/pageforge/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "pageforge",
	Short: "PageForge - AI-powered web page builder",
	Long: `PageForge turns a natural-language prompt into a complete web page
by streaming a generation plan, code, and files from a backend server.

Run 'pageforge build "a coffee shop website"' to generate a page, or
'pageforge serve' to start the backend server.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: true,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend server URL (overrides config)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("pageforge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(tokensCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
