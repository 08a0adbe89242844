package main

import (
	"approval-notify/domain"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	NotifyAddr string        `envconfig:"NOTIFY_ADDR" default:"http://localhost:8000"`
	Timeout    time.Duration `envconfig:"INSPECT_TIMEOUT" default:"5s"`
	// INSPECT_COLOURS enables colorized headers
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

// Prints the live registry statistics of a running notification server.
func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	stats, err := fetchStats(ctx, strings.TrimRight(config.NotifyAddr, "/")+"/stats/websocket")
	if err != nil {
		log.Fatalf("Failed to fetch stats: %v", err)
	}

	header := fmt.Sprintf("  ====== %s ======", config.NotifyAddr)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	render(stats)
}

func fetchStats(ctx context.Context, url string) (domain.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Stats{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.Stats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Stats{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var stats domain.Stats
	if err = json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func render(stats domain.Stats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	table.Append([]string{"total_connections", strconv.Itoa(stats.TotalConnections)})
	table.Append([]string{"unique_users", strconv.Itoa(stats.UniqueIdentities)})
	table.Append([]string{"messages_sent", strconv.FormatUint(stats.MessagesSent, 10)})

	roles := make([]string, 0, len(stats.RoleDistribution))
	for role := range stats.RoleDistribution {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, role := range roles {
		table.Append([]string{"role:" + role, strconv.Itoa(stats.RoleDistribution[domain.Role(role)])})
	}

	users := make([]string, 0, len(stats.ActiveIdentities))
	for _, identity := range stats.ActiveIdentities {
		users = append(users, string(identity))
	}
	table.Append([]string{"active_users", strings.Join(users, ", ")})

	table.Render()
}
