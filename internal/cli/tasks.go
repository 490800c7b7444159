package cli

import (
	"context"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/missionctl/missionctl/internal/database"
)

// NewTasksCmd creates the tasks command
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks from the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			status, _ := cmd.Flags().GetString("status")
			priority, _ := cmd.Flags().GetString("priority")
			return runTasks(configPath, status, priority)
		},
	}
	cmd.Flags().String("status", "", "filter by status (todo, in_progress, done)")
	cmd.Flags().String("priority", "", "filter by priority (low, medium, high, urgent)")
	return cmd
}

func runTasks(configPath, status, priority string) error {
	cfg, err := loadConfiguration(configPath)
	if err != nil {
		return err
	}

	store, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tasks, err := store.ListTasks(ctx, database.TaskFilter{Status: status, Priority: priority})
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due", "Assigned"})
	for _, task := range tasks {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		t.AppendRow(table.Row{task.ID[:8], task.Title, task.Status, task.Priority, due, task.AssignedTo})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
