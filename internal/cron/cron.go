// Package cron manages the agent's scheduled jobs. The agent CLI owns the
// schedule store; this package only builds the cron subcommands and relays
// their output.
package cron

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/missionctl/missionctl/internal/agent"
)

const defaultTimezone = "Asia/Calcutta"

// AgentClient is the slice of the agent client the manager needs: the
// conversational path for queries and the raw CLI path for mutations.
type AgentClient interface {
	Invoke(ctx context.Context, instruction string, opts agent.Options) (*agent.Envelope, error)
	Run(ctx context.Context, args ...string) (string, error)
}

// Schedule is a cron expression plus its timezone.
type Schedule struct {
	Expr string `json:"expr"`
	TZ   string `json:"tz,omitempty"`
}

// Job describes a scheduled agent job.
type Job struct {
	Name           string   `json:"name"`
	Schedule       Schedule `json:"schedule"`
	SessionTarget  string   `json:"sessionTarget"`
	WakeMode       string   `json:"wakeMode"`
	PayloadText    string   `json:"payloadText"`
	Enabled        *bool    `json:"enabled,omitempty"`
	DeleteAfterRun bool     `json:"deleteAfterRun,omitempty"`
}

// JobUpdate carries the mutable fields of an existing job; nil and empty
// fields are left untouched.
type JobUpdate struct {
	Name          string    `json:"name,omitempty"`
	Schedule      *Schedule `json:"schedule,omitempty"`
	PayloadText   string    `json:"payloadText,omitempty"`
	SessionTarget string    `json:"sessionTarget,omitempty"`
	Enabled       *bool     `json:"enabled,omitempty"`
}

// Manager wraps the agent CLI cron subcommands.
type Manager struct {
	agent AgentClient
	log   logr.Logger
}

// NewManager creates a cron manager.
func NewManager(client AgentClient, log logr.Logger) *Manager {
	return &Manager{agent: client, log: log.WithName("cron")}
}

// List returns the agent's view of its scheduled jobs.
func (m *Manager) List(ctx context.Context) (*agent.Envelope, error) {
	return m.agent.Invoke(ctx, "cron list", agent.Options{})
}

// Add registers a new job.
func (m *Manager) Add(ctx context.Context, job Job) (string, error) {
	if job.Name == "" || job.Schedule.Expr == "" {
		return "", fmt.Errorf("cron job requires a name and a schedule expression")
	}
	tz := job.Schedule.TZ
	if tz == "" {
		tz = defaultTimezone
	}

	args := []string{
		"cron", "add",
		"--name", job.Name,
		"--schedule", job.Schedule.Expr,
		"--tz", tz,
		"--session", job.SessionTarget,
		"--wake", job.WakeMode,
		"--text", job.PayloadText,
	}
	if job.Enabled != nil && !*job.Enabled {
		args = append(args, "--disabled")
	}
	if job.DeleteAfterRun {
		args = append(args, "--delete-after-run")
	}

	m.log.V(1).Info("adding cron job", "name", job.Name, "schedule", job.Schedule.Expr)
	return m.agent.Run(ctx, args...)
}

// Update modifies an existing job in place.
func (m *Manager) Update(ctx context.Context, jobID string, update JobUpdate) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("cron job id is required")
	}

	args := []string{"cron", "update", "--job-id", jobID}
	if update.Name != "" {
		args = append(args, "--name", update.Name)
	}
	if update.Schedule != nil {
		args = append(args, "--schedule", update.Schedule.Expr)
		if update.Schedule.TZ != "" {
			args = append(args, "--tz", update.Schedule.TZ)
		}
	}
	if update.PayloadText != "" {
		args = append(args, "--text", update.PayloadText)
	}
	if update.SessionTarget != "" {
		args = append(args, "--session", update.SessionTarget)
	}
	if update.Enabled != nil {
		if *update.Enabled {
			args = append(args, "--enable")
		} else {
			args = append(args, "--disable")
		}
	}

	return m.agent.Run(ctx, args...)
}

// Remove deletes a job.
func (m *Manager) Remove(ctx context.Context, jobID string) (*agent.Envelope, error) {
	if jobID == "" {
		return nil, fmt.Errorf("cron job id is required")
	}
	return m.agent.Invoke(ctx, fmt.Sprintf("cron remove --job-id %s", jobID), agent.Options{})
}

// Run triggers a job immediately.
func (m *Manager) Run(ctx context.Context, jobID, mode string) (*agent.Envelope, error) {
	if jobID == "" {
		return nil, fmt.Errorf("cron job id is required")
	}
	if mode == "" {
		mode = "now"
	}
	return m.agent.Invoke(ctx, fmt.Sprintf("cron run --job-id %s --mode %s", jobID, mode), agent.Options{})
}
