package cli

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/missionctl/missionctl/internal/agent"
	"github.com/missionctl/missionctl/internal/database"
	"github.com/missionctl/missionctl/internal/gateway"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the agent gateway and database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runCheck(configPath)
		},
	}
}

func runCheck(configPath string) error {
	cfg, err := loadConfiguration(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := stdr.New(log.New(os.Stderr, "", 0))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok := true
	ok = checkStep("agent gateway (CLI probe)", func() error {
		client := agent.NewClient(agent.ClientConfig{
			Binary:    cfg.Agent.Binary,
			SessionID: cfg.Agent.SessionID,
		}, logger)
		if !client.GatewayRunning(ctx) {
			return agent.NewError(agent.KindAgentUnavailable,
				"gateway status probe failed", nil)
		}
		return nil
	}) && ok

	ok = checkStep("agent gateway (HTTP probe)", func() error {
		agentClient := agent.NewClient(agent.ClientConfig{Binary: cfg.Agent.Binary}, logger)
		gw := gateway.NewClient(cfg.Agent.GatewayURL, agentClient, logger)
		_, err := gw.Status(ctx)
		return err
	}) && ok

	ok = checkStep("database", func() error {
		_, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		return err
	}) && ok

	if !ok {
		os.Exit(1)
	}
	color.Green("All checks passed")
	return nil
}

func checkStep(name string, probe func() error) bool {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " checking " + name + "..."
	sp.Start()
	err := probe()
	sp.Stop()

	if err != nil {
		color.Red("x %s: %v", name, err)
		return false
	}
	color.Green("+ %s", name)
	return true
}
