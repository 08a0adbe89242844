package workers

import (
	"approval-notify/contract"
	"approval-notify/observability"
	"context"
	"log/slog"
	"time"
)

// StatsReporter periodically logs the registry and process statistics.
type StatsReporter struct {
	log      *slog.Logger
	registry contract.IRegistry
	process  observability.IProcessMonitor
	interval time.Duration
}

func NewStatsReporter(log *slog.Logger, registry contract.IRegistry, process observability.IProcessMonitor, interval time.Duration) *StatsReporter {
	return &StatsReporter{log: log, registry: registry, process: process, interval: interval}
}

// Run reports until context cancellation, with a final report on the way out.
func (w *StatsReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Report()
			return nil
		case <-ticker.C:
			w.Report()
		}
	}
}

func (w *StatsReporter) Report() {
	stats := w.registry.Stats()
	attrs := []any{
		"total_connections", stats.TotalConnections,
		"unique_users", stats.UniqueIdentities,
		"messages_sent", stats.MessagesSent,
		"role_distribution", stats.RoleDistribution,
	}
	if w.process != nil {
		if self, err := w.process.Snapshot(); err != nil {
			w.log.Debug("Process stats unavailable", "error", err)
		} else {
			attrs = append(attrs, "rss_bytes", self.RSSBytes, "cpu_percent", self.CPUPercent, "goroutines", self.Goroutines)
		}
	}
	w.log.Info("Connection stats", attrs...)
}
