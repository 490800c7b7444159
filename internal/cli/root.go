// Package cli wires the missionctl commands.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root missionctl command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missionctl",
		Short: "Mission Control dashboard backend",
		Long: `missionctl runs the Mission Control personal productivity dashboard:
task, event, approval and contact management backed by a local database,
with natural-language parsing and risk classification delegated to the
external agent CLI.

Available subcommands:
  serve       Run the dashboard HTTP server
  check       Probe the agent gateway and database
  tasks       List tasks from the database

Examples:
  missionctl serve
  missionctl serve --config /etc/missionctl/config.yaml
  missionctl check
  missionctl tasks --status in_progress`,
	}

	cmd.PersistentFlags().String("config", defaultConfigPath, "path to the configuration file")
	cmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewTasksCmd())

	return cmd
}
