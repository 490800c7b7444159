package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/missionctl/missionctl/internal/metrics"
)

const (
	DefaultBinary         = "clawdbot"
	DefaultSessionID      = "mission-control"
	DefaultTimeoutSeconds = 30
	DefaultOutputLimit    = 10 * 1024 * 1024 // 10 MiB of captured stdout

	// The process deadline is strictly greater than the timeout handed to
	// the agent, so a supervisor kill is distinguishable from the agent
	// itself running out of budget.
	deadlineGrace = 5 * time.Second

	statusProbeTimeout = 5 * time.Second
)

// Client invokes the external agent CLI. Each call spawns one child process
// and holds no state across calls, so a single Client is safe for concurrent
// use.
type Client struct {
	binary      string
	sessionID   string
	timeoutSecs int
	outputLimit int64
	log         logr.Logger
}

// ClientConfig configures a Client. Zero values fall back to package
// defaults.
type ClientConfig struct {
	Binary         string
	SessionID      string
	TimeoutSeconds int
	OutputLimit    int64
}

// NewClient creates an agent client.
func NewClient(cfg ClientConfig, log logr.Logger) *Client {
	c := &Client{
		binary:      cfg.Binary,
		sessionID:   cfg.SessionID,
		timeoutSecs: cfg.TimeoutSeconds,
		outputLimit: cfg.OutputLimit,
		log:         log.WithName("agent-client"),
	}
	if c.binary == "" {
		c.binary = DefaultBinary
	}
	if c.sessionID == "" {
		c.sessionID = DefaultSessionID
	}
	if c.timeoutSecs <= 0 {
		c.timeoutSecs = DefaultTimeoutSeconds
	}
	if c.outputLimit <= 0 {
		c.outputLimit = DefaultOutputLimit
	}
	return c
}

// Options adjusts a single invocation. The zero value requests structured
// output with the client's defaults.
type Options struct {
	SessionID      string
	TimeoutSeconds int
	// RawOutput skips the --json flag, leaving the reply as free text.
	RawOutput bool
}

// Invoke runs the agent with the given instruction and returns its reply
// envelope. On any failure the returned error is a *ClassifiedError; the
// call never returns both an envelope and an error.
func (c *Client) Invoke(ctx context.Context, instruction string, opts Options) (*Envelope, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, NewError(KindUnknown, "instruction must not be empty", nil)
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = c.sessionID
	}
	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = c.timeoutSecs
	}

	// The instruction crosses the process boundary as a single argv entry,
	// so quotes and shell metacharacters need no escaping.
	args := []string{
		"agent",
		"--message", instruction,
		"--session-id", sessionID,
		"--timeout", strconv.Itoa(timeout),
	}
	if !opts.RawOutput {
		args = append(args, "--json")
	}

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second+deadlineGrace)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.binary, args...)
	stdout := &cappedBuffer{limit: c.outputLimit}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	env, err := c.interpretRun(stdout, &stderr, cmdCtx, runErr, timeout)
	kind := "ok"
	if err != nil {
		kind = string(Classify(err).Kind)
	}
	metrics.ObserveInvocation(kind, duration)
	c.log.V(1).Info("agent invocation finished",
		"session", sessionID, "duration", duration, "result", kind)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) interpretRun(stdout *cappedBuffer, stderr *bytes.Buffer, cmdCtx context.Context, runErr error, timeout int) (*Envelope, error) {
	if runErr != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return nil, NewError(KindTimeout,
				fmt.Sprintf("agent did not reply within %d seconds", timeout), runErr)
		}
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return nil, Classify(fmt.Errorf("agent invocation failed: %s: %w", errText, runErr))
		}
		return nil, Classify(fmt.Errorf("agent invocation failed: %w", runErr))
	}

	if stdout.truncated {
		return nil, NewError(KindMalformedResponse,
			fmt.Sprintf("agent reply exceeded the %d byte output limit", stdout.limit), nil)
	}

	var env Envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		return nil, NewError(KindMalformedResponse, msgMalformed, err)
	}
	if len(env.Result.Payloads) == 0 {
		return nil, NewError(KindMalformedResponse, "no payloads in agent response", nil)
	}
	return &env, nil
}

// Run executes a raw agent CLI subcommand (cron management, gateway restart)
// and returns trimmed stdout. Failures are classified like Invoke failures.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSecs)*time.Second+deadlineGrace)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.binary, args...)
	stdout := &cappedBuffer{limit: c.outputLimit}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", NewError(KindTimeout,
				fmt.Sprintf("agent command %q timed out", strings.Join(args, " ")), err)
		}
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return "", Classify(fmt.Errorf("agent command failed: %s: %w", errText, err))
		}
		return "", Classify(fmt.Errorf("agent command failed: %w", err))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// GatewayRunning probes whether the agent gateway responds to a status
// check. It reports availability only; the probe output is discarded.
func (c *Client) GatewayRunning(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, c.binary, "gateway", "status")
	if err := cmd.Run(); err != nil {
		c.log.V(1).Info("gateway status probe failed", "error", err.Error())
		return false
	}
	return true
}

// cappedBuffer accepts writes up to limit bytes and discards the rest,
// remembering that truncation happened. The child process keeps a writable
// stdout either way, so a chatty agent cannot exhaust memory or hit EPIPE.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *cappedBuffer) String() string { return b.buf.String() }
