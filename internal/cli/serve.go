package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/missionctl/missionctl/internal/agent"
	"github.com/missionctl/missionctl/internal/calendar"
	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/internal/cron"
	"github.com/missionctl/missionctl/internal/database"
	"github.com/missionctl/missionctl/internal/gateway"
	"github.com/missionctl/missionctl/internal/interpret"
	"github.com/missionctl/missionctl/internal/repos"
	"github.com/missionctl/missionctl/internal/server"
	"github.com/missionctl/missionctl/internal/stream"
	"github.com/missionctl/missionctl/internal/vitals"
)

const defaultConfigPath = "config/missionctl.yaml"

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbosity, _ := cmd.Flags().GetCount("verbose")
			return runServe(configPath, verbosity)
		},
	}
}

func runServe(configPath string, verbosity int) error {
	cfg, err := loadConfiguration(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	stdr.SetVerbosity(verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("missionctl")

	log.Printf("Starting Mission Control")
	log.Printf("Agent binary: %s (session %s)", cfg.Agent.Binary, cfg.Agent.SessionID)
	log.Printf("Database: %s", cfg.Database.Driver)
	log.Printf("HTTP Server: %s:%d", cfg.Server.Host, cfg.Server.Port)

	store, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	agentClient := agent.NewClient(agent.ClientConfig{
		Binary:         cfg.Agent.Binary,
		SessionID:      cfg.Agent.SessionID,
		TimeoutSeconds: cfg.Agent.TimeoutSeconds,
		OutputLimit:    cfg.Agent.OutputLimitBytes,
	}, logger)

	broker := stream.NewBroker(logger)
	srv := server.New(server.Deps{
		Store:    store,
		Tasks:    interpret.NewTaskParser(agentClient, logger),
		Events:   interpret.NewEventParser(agentClient, logger),
		Approver: interpret.NewApprovalClassifier(agentClient, logger),
		Cron:     cron.NewManager(agentClient, logger),
		Gateway:  gateway.NewClient(cfg.Agent.GatewayURL, agentClient, logger),
		Vitals:   vitals.NewProber(logger),
		Repos:    repos.NewClient(cfg.GitHub.Binary, logger),
		Calendar: calendar.NewSyncer(cfg.Calendar.Binary, cfg.Calendar.ICSDir, cfg.Calendar.WindowDays, store, logger),
		Broker:   broker,
		Log:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     srv.Handler(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE stream holds its response open.
		IdleTimeout: 60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-sigChan
	log.Printf("Shutdown signal received, gracefully stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("Shutdown complete")
	return nil
}

func loadConfiguration(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("Config file not found at %s, using defaults", configPath)
		cfg := config.DefaultConfig()

		if err := config.SaveConfig(cfg, configPath); err != nil {
			log.Printf("Warning: Could not save default config: %v", err)
		} else {
			log.Printf("Default configuration saved to %s", configPath)
		}

		return cfg, nil
	}

	return config.LoadConfig(configPath)
}
