package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageforge-ai/pageforge/internal/client"
	"github.com/pageforge-ai/pageforge/internal/config"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Show the remaining token budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		info, err := c.GetTokenInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch token info: %w", err)
		}

		fmt.Printf("Remaining: %d\n", info.Remaining)
		fmt.Printf("Limit:     %d\n", info.Limit)
		if info.Used > 0 {
			fmt.Printf("Used:      %d\n", info.Used)
		}
		return nil
	},
}

// newClient builds an API client from the --server flag or the loaded config.
func newClient() (*client.Client, error) {
	url := serverURL
	if url == "" {
		workDir, err := GetWorkDir("")
		if err != nil {
			return nil, err
		}
		appConfig, err := config.Load(workDir)
		if err != nil {
			return nil, err
		}
		url = appConfig.Client.ServerURL
	}
	return client.New(url), nil
}
