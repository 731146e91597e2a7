package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List generated projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		projects, err := c.ListProjects(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects yet. Run 'pageforge build \"your prompt\"' to create one.")
			return nil
		}

		for _, p := range projects {
			created := time.UnixMilli(p.Time.Created).Format("2006-01-02 15:04")
			fmt.Printf("%-28s  %-30s  %s\n", p.ID, truncate(p.Name, 30), created)
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
