package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a point-in-time sample of this process.
type ProcessStats struct {
	RSS        uint64
	CPUPercent float64
	Threads    int32
	SampledAt  time.Time
}

// ProcessSampledMsg delivers a sample to the UI.
type ProcessSampledMsg struct {
	Stats ProcessStats
	Err   error
}

// SampleProcess reads memory and CPU figures for the current process.
func SampleProcess(ctx context.Context) (ProcessStats, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, fmt.Errorf("open process: %w", err)
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("memory info: %w", err)
	}
	stats := ProcessStats{
		RSS:       mem.RSS,
		SampledAt: time.Now(),
	}
	// CPU and thread counts are best effort; not every platform has them.
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		stats.Threads = n
	}
	return stats, nil
}

// SampleCmd samples after d and records RSS into m.
func SampleCmd(m *Metrics, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		stats, err := SampleProcess(ctx)
		if err == nil {
			m.SetRSS(stats.RSS)
		}
		return ProcessSampledMsg{Stats: stats, Err: err}
	})
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
