package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the notification process itself.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

type IProcessMonitor interface {
	Snapshot() (ProcessStats, error)
}

type ProcessMonitor struct {
	process *process.Process
}

func NewProcessMonitor() (*ProcessMonitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessMonitor{process: p}, nil
}

// Snapshot retrieves memory and CPU usage of the current process.
func (m *ProcessMonitor) Snapshot() (ProcessStats, error) {
	memInfo, err := m.process.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := m.process.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
