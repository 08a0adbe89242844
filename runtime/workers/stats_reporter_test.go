package workers

import (
	"approval-notify/domain"
	"approval-notify/mocks"
	"approval-notify/observability"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedProcess struct {
	stats observability.ProcessStats
	err   error
}

func (p fixedProcess) Snapshot() (observability.ProcessStats, error) { return p.stats, p.err }

func TestStatsReporter_Report_Logs_Registry_And_Process(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)

	registry.EXPECT().Stats().Return(domain.Stats{
		TotalConnections: 3,
		UniqueIdentities: 2,
		MessagesSent:     11,
		RoleDistribution: map[domain.Role]int{"manager": 1, "user": 2},
	})
	process := fixedProcess{stats: observability.ProcessStats{RSSBytes: 2048, Goroutines: 9}}

	NewStatsReporter(log, registry, process, time.Minute).Report()

	out := buf.String()
	req.Contains(out, "total_connections=3")
	req.Contains(out, "unique_users=2")
	req.Contains(out, "messages_sent=11")
	req.Contains(out, "rss_bytes=2048")
	req.Contains(out, "goroutines=9")
}

func TestStatsReporter_Report_Without_Process_Stats(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Stats().Return(domain.Stats{}).Times(2)

	NewStatsReporter(log, registry, nil, time.Minute).Report()
	NewStatsReporter(log, registry, fixedProcess{err: fmt.Errorf("no proc")}, time.Minute).Report()

	req.NotContains(buf.String(), "rss_bytes")
	req.Contains(buf.String(), "Process stats unavailable")
}

func TestStatsReporter_Run_Reports_On_Exit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Stats().Return(domain.Stats{}).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	req.NoError(NewStatsReporter(log, registry, nil, time.Hour).Run(ctx))
}
