// Package config loads tool configuration from defaults, a YAML file,
// FSUIPC_ environment variables and command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FSUIPC"

// Backend names.
const (
	BackendWindow = "window"
	BackendNative = "native"
	BackendBridge = "bridge"
	BackendSim    = "sim"
)

// Config holds the configuration shared by the command line tools.
type Config struct {
	// Backend selects how the FSUIPC server is reached.
	Backend string `yaml:"backend" split_words:"true"`

	// Simulator is the simulator Open insists on ("any" accepts all).
	Simulator string `yaml:"simulator" split_words:"true"`

	// Timeout bounds each request area exchange.
	Timeout time.Duration `yaml:"timeout" split_words:"true"`

	LogLevel string `yaml:"log_level" split_words:"true"`

	// ProtocolLog is a .flog file receiving protocol events (optional).
	ProtocolLog string `yaml:"protocol_log" split_words:"true"`

	// Catalog is a YAML offset catalogue merged over the embedded one.
	Catalog string `yaml:"catalog" split_words:"true"`

	Window WindowConfig `yaml:"window" split_words:"true"`
	Bridge BridgeConfig `yaml:"bridge" split_words:"true"`
	Server ServerConfig `yaml:"server" split_words:"true"`
	Sim    SimConfig    `yaml:"sim" split_words:"true"`
}

// WindowConfig tunes the window message transport.
type WindowConfig struct {
	SendTimeout time.Duration `yaml:"send_timeout" split_words:"true"`
	Retries     int           `yaml:"retries" split_words:"true"`
	RetryDelay  time.Duration `yaml:"retry_delay" split_words:"true"`
}

// BridgeConfig selects a bridge for the bridge backend.
type BridgeConfig struct {
	// Address is host:port. Empty means discover over mDNS.
	Address string `yaml:"address" split_words:"true"`

	// Discover bounds mDNS discovery.
	Discover time.Duration `yaml:"discover" split_words:"true"`

	// Interface restricts mDNS to one interface.
	Interface string `yaml:"interface" split_words:"true"`
}

// ServerConfig configures fsuipc-bridge.
type ServerConfig struct {
	Listen string `yaml:"listen" split_words:"true"`
	Name   string `yaml:"name" split_words:"true"`

	// Upstream is the backend the bridge forwards to. It cannot be bridge.
	Upstream string `yaml:"upstream" split_words:"true"`

	Advertise bool `yaml:"advertise" split_words:"true"`

	// RateLimit caps process requests per second per connection; 0 is
	// unlimited.
	RateLimit float64 `yaml:"rate_limit" split_words:"true"`
	Burst     int     `yaml:"burst" split_words:"true"`

	// Metrics is the listen address of the Prometheus endpoint; empty
	// disables it.
	Metrics string `yaml:"metrics" split_words:"true"`
}

// SimConfig configures the in-process emulator backend.
type SimConfig struct {
	Title       string        `yaml:"title" split_words:"true"`
	Latitude    float64       `yaml:"latitude" split_words:"true"`
	Longitude   float64       `yaml:"longitude" split_words:"true"`
	Altitude    float64       `yaml:"altitude" split_words:"true"`
	Heading     float64       `yaml:"heading" split_words:"true"`
	GroundSpeed float64       `yaml:"ground_speed" split_words:"true"`
	Tick        time.Duration `yaml:"tick" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:   BackendWindow,
		Simulator: "any",
		Timeout:   5 * time.Second,
		LogLevel:  "info",
		Window: WindowConfig{
			SendTimeout: 2 * time.Second,
			Retries:     10,
			RetryDelay:  100 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			Discover: 3 * time.Second,
		},
		Server: ServerConfig{
			Listen:   ":8998",
			Upstream: BackendWindow,
		},
		Sim: SimConfig{
			Title:     "Cessna Skyhawk G1000 Asobo",
			Latitude:  60.3172,
			Longitude: 24.9633,
			Altitude:  55,
			Tick:      50 * time.Millisecond,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// Decode overlays YAML from r. Unknown keys are errors.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks backend names, the simulator and value ranges.
func (c *Config) Validate() error {
	if !validBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Server.Upstream == BackendBridge || !validBackend(c.Server.Upstream) {
		return fmt.Errorf("invalid bridge upstream %q", c.Server.Upstream)
	}
	if _, err := c.SimulatorID(); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("rate limit and burst must not be negative")
	}
	return nil
}

// SimulatorID parses Simulator.
func (c *Config) SimulatorID() (wire.Simulator, error) {
	return wire.ParseSimulator(c.Simulator)
}

// SlogLevel returns the slog level for LogLevel, info if unparsable.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func validBackend(name string) bool {
	switch name {
	case BackendWindow, BackendNative, BackendBridge, BackendSim:
		return true
	}
	return false
}
