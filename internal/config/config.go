// Package config loads ledger settings from defaults and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	ErrInvalidWorkers = errors.New("ledger.workers must be at least 1")
	ErrInvalidFormat  = errors.New("output.format must be csv or json")
	ErrInvalidLevel   = errors.New("log.level must be debug, info, warn or error")
	ErrInvalidServer  = errors.New("invalid server settings")
)

// Config is the full settings tree, mirroring the TOML sections.
type Config struct {
	Ledger  LedgerConfig  `toml:"ledger"`
	Output  OutputConfig  `toml:"output"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

type LedgerConfig struct {
	// Workers above 1 fold clients in parallel shards.
	Workers int `toml:"workers"`
}

type OutputConfig struct {
	Format     string `toml:"format"`
	SQLitePath string `toml:"sqlite_path"`
	SignKey    string `toml:"sign_key"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	MaxBodyBytes    int64  `toml:"max_body_bytes"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Ledger: LedgerConfig{Workers: 1},
		Output: OutputConfig{Format: "csv"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{
			Addr:            ":8080",
			MaxBodyBytes:    32 << 20,
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "30s",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slog.Warn("Unknown config keys ignored",
			slog.String("path", path),
			slog.String("keys", strings.Join(keys, ",")))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Ledger.Workers < 1 {
		errs = append(errs, ErrInvalidWorkers)
	}

	switch strings.ToLower(c.Output.Format) {
	case "csv", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidServer))
	}
	for name, v := range map[string]string{
		"read_timeout":     c.Server.ReadTimeout,
		"write_timeout":    c.Server.WriteTimeout,
		"shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidServer, name, err))
		}
	}

	return errors.Join(errs...)
}

// Timeouts returns the parsed server timeouts. Call Validate first.
func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	read, _ = time.ParseDuration(s.ReadTimeout)
	write, _ = time.ParseDuration(s.WriteTimeout)
	shutdown, _ = time.ParseDuration(s.ShutdownTimeout)
	return read, write, shutdown
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}
