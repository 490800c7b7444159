package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the missionctl configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Agent    AgentConfig    `yaml:"agent"`
	Calendar CalendarConfig `yaml:"calendar"`
	GitHub   GitHubConfig   `yaml:"github"`
	Vitals   VitalsConfig   `yaml:"vitals"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds persistence configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env,omitempty"`
}

// AgentConfig holds external agent CLI configuration
type AgentConfig struct {
	Binary           string `yaml:"binary"`
	SessionID        string `yaml:"session_id"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	OutputLimitBytes int64  `yaml:"output_limit_bytes"`
	GatewayURL       string `yaml:"gateway_url"`
}

// CalendarConfig holds the calendar provider CLI configuration
type CalendarConfig struct {
	Binary     string `yaml:"binary"`
	ICSDir     string `yaml:"ics_dir,omitempty"`
	WindowDays int    `yaml:"window_days"`
}

// GitHubConfig holds the repository metadata CLI configuration
type GitHubConfig struct {
	Binary string `yaml:"binary"`
}

// VitalsConfig holds system vitals probe configuration
type VitalsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Resolve secrets from environment variables
	if config.Database.DSNEnv != "" {
		if dsn := os.Getenv(config.Database.DSNEnv); dsn != "" {
			config.Database.DSN = dsn
		}
	}

	config.SetDefaults()

	return &config, nil
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "missionctl.db"
	}

	if c.Agent.Binary == "" {
		c.Agent.Binary = "clawdbot"
	}
	if c.Agent.SessionID == "" {
		c.Agent.SessionID = "mission-control"
	}
	if c.Agent.TimeoutSeconds == 0 {
		c.Agent.TimeoutSeconds = 30
	}
	if c.Agent.OutputLimitBytes == 0 {
		c.Agent.OutputLimitBytes = 10 * 1024 * 1024
	}
	if c.Agent.GatewayURL == "" {
		c.Agent.GatewayURL = "http://localhost:18789"
	}

	if c.Calendar.Binary == "" {
		c.Calendar.Binary = "gog"
	}
	if c.Calendar.WindowDays == 0 {
		c.Calendar.WindowDays = 30
	}

	if c.GitHub.Binary == "" {
		c.GitHub.Binary = "gh"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Agent.Binary == "" {
		return fmt.Errorf("agent.binary is required")
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("agent.timeout_seconds must be positive")
	}
	if c.Agent.OutputLimitBytes <= 0 {
		return fmt.Errorf("agent.output_limit_bytes must be positive")
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.SetDefaults()
	return config
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
