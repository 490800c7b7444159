// Package vitals probes host CPU, memory and disk usage for the dashboard's
// system panel. Every probe degrades to zero on failure; the endpoint never
// errors because a counter was unreadable.
package vitals

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const cpuSampleInterval = 250 * time.Millisecond

// Snapshot is one reading of the host vitals, each as a 0-100 percentage.
type Snapshot struct {
	CPU       float64 `json:"cpu"`
	RAM       float64 `json:"ram"`
	Disk      float64 `json:"disk"`
	Timestamp int64   `json:"timestamp"`
}

// Prober reads Linux proc counters and df output.
type Prober struct {
	log logr.Logger
}

// NewProber creates a vitals prober.
func NewProber(log logr.Logger) *Prober {
	return &Prober{log: log.WithName("vitals")}
}

// Collect takes a snapshot of the current host vitals.
func (p *Prober) Collect(ctx context.Context) Snapshot {
	return Snapshot{
		CPU:       p.cpuPercent(),
		RAM:       p.ramPercent(),
		Disk:      p.diskPercent(ctx),
		Timestamp: time.Now().UnixMilli(),
	}
}

// cpuPercent samples /proc/stat twice and reports the busy share of the
// interval.
func (p *Prober) cpuPercent() float64 {
	busy1, total1, err := readCPUStat()
	if err != nil {
		p.log.V(1).Info("cpu probe failed", "error", err.Error())
		return 0
	}
	time.Sleep(cpuSampleInterval)
	busy2, total2, err := readCPUStat()
	if err != nil || total2 <= total1 {
		return 0
	}
	return float64(busy2-busy1) / float64(total2-total1) * 100
}

func readCPUStat() (busy, total uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return parseCPUStat(line)
}

// parseCPUStat parses the aggregate "cpu" line of /proc/stat. Field order:
// user nice system idle iowait irq softirq steal.
func parseCPUStat(line string) (busy, total uint64, err error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("unexpected /proc/stat line %q", line)
	}
	var idle uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("bad /proc/stat field %q: %w", f, err)
		}
		total += v
		// idle + iowait count as not busy
		if i == 3 || i == 4 {
			idle += v
		}
	}
	return total - idle, total, nil
}

func (p *Prober) ramPercent() float64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		p.log.V(1).Info("memory probe failed", "error", err.Error())
		return 0
	}
	pct, err := parseMemInfo(string(data))
	if err != nil {
		p.log.V(1).Info("memory probe failed", "error", err.Error())
		return 0
	}
	return pct
}

func parseMemInfo(data string) (float64, error) {
	var total, available uint64
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = v
		case "MemAvailable:":
			available = v
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("meminfo is missing MemTotal")
	}
	return float64(total-available) / float64(total) * 100, nil
}

func (p *Prober) diskPercent(ctx context.Context) float64 {
	out, err := exec.CommandContext(ctx, "df", "-P", "/").Output()
	if err != nil {
		p.log.V(1).Info("disk probe failed", "error", err.Error())
		return 0
	}
	pct, err := parseDiskPercent(string(out))
	if err != nil {
		p.log.V(1).Info("disk probe failed", "error", err.Error())
		return 0
	}
	return pct
}

// parseDiskPercent pulls the capacity column out of POSIX df output.
func parseDiskPercent(out string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("df output too short")
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 5 {
		return 0, fmt.Errorf("unexpected df line %q", lines[1])
	}
	return strconv.ParseFloat(strings.TrimSuffix(fields[4], "%"), 64)
}
