package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host                   string        `env:"HOST,default=0.0.0.0"`
	Port                   int           `env:"PORT,default=8000"`
	LogLevel               string        `env:"LOG_LEVEL,default=INFO"`
	HeartbeatInterval      time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	WriteTimeout           time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	RestartInterval        time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StatsInterval          time.Duration `env:"STATS_INTERVAL,default=1m"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	NotificationBufferSize int           `env:"NOTIFICATION_BUFFER_SIZE,default=1024"`
	PublishWorkers         int           `env:"PUBLISH_WORKERS,default=1"`
	ReadLimit              int           `env:"READ_LIMIT,default=65536"`
	AllowedOrigins         string        `env:"ALLOWED_ORIGINS,default=*"`
}

// Validate rejects values that would stall the heartbeat or the fan-out.
func (c Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive, got %s", c.HeartbeatInterval)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}
	if c.NotificationBufferSize <= 0 {
		return fmt.Errorf("NOTIFICATION_BUFFER_SIZE must be positive, got %d", c.NotificationBufferSize)
	}
	if c.PublishWorkers <= 0 {
		return fmt.Errorf("PUBLISH_WORKERS must be positive, got %d", c.PublishWorkers)
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	return lo.FilterMap(strings.Split(c.AllowedOrigins, ","), func(origin string, _ int) (string, bool) {
		origin = strings.TrimSpace(origin)
		return origin, origin != ""
	})
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
