package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"zoocore/internal/blob"
	"zoocore/internal/core"
)

const envPrefix = "ZOOCORE_"

// Config is read from ZOOCORE_* environment variables.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	SeedDemo        bool          `env:"SEED_DEMO" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TraceStderr     bool          `env:"TRACE_STDERR"`
	TraceLimit      int           `env:"TRACE_LIMIT" envDefault:"256"`
	ExpvarName      string        `env:"EXPVAR_NAME" envDefault:"zoocore_service_metrics"`
	EventBuffer     int           `env:"EVENT_BUFFER" envDefault:"256"`

	Storage core.StorageConfig
	Blob    blob.Config
}

// ParseConfig reads the configuration from environ, a list of KEY=value
// pairs as returned by os.Environ.
func ParseConfig(environ []string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      envPrefix,
		Environment: env.ToMap(environ),
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TraceLimit < 0 {
		return Config{}, fmt.Errorf("parse env: %sTRACE_LIMIT must be >= 0", envPrefix)
	}
	if cfg.EventBuffer < 0 {
		return Config{}, fmt.Errorf("parse env: %sEVENT_BUFFER must be >= 0", envPrefix)
	}
	return cfg, nil
}

// newLogger returns a JSON slog logger writing to w at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
