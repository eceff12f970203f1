package config

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsuipc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendWindow, cfg.Backend)
	assert.Equal(t, ":8998", cfg.Server.Listen)

	sim, err := cfg.SimulatorID()
	require.NoError(t, err)
	assert.Equal(t, wire.SimAny, sim)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
backend: bridge
simulator: msfs
timeout: 2s
bridge:
  address: 192.168.1.20:8998
server:
  rate_limit: 50
  burst: 10
sim:
  title: Test Aircraft
  tick: 20ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendBridge, cfg.Backend)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "192.168.1.20:8998", cfg.Bridge.Address)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Server.Burst)
	assert.Equal(t, "Test Aircraft", cfg.Sim.Title)
	assert.Equal(t, 20*time.Millisecond, cfg.Sim.Tick)

	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Window.Retries)
	assert.Equal(t, 60.3172, cfg.Sim.Latitude)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "backnd: sim\n"))
	assert.ErrorContains(t, err, "backnd")

	_, err = Load(writeFile(t, "timeout: soon\n"))
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "backend: bridge\nserver:\n  listen: :9000\n")
	t.Setenv("FSUIPC_BACKEND", "sim")
	t.Setenv("FSUIPC_SERVER_ADVERTISE", "true")
	t.Setenv("FSUIPC_SIM_HEADING", "270")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSim, cfg.Backend)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.True(t, cfg.Server.Advertise)
	assert.Equal(t, 270.0, cfg.Sim.Heading)
}

func TestEnvironmentError(t *testing.T) {
	t.Setenv("FSUIPC_TIMEOUT", "forever")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.Backend = "serial" }, "unknown backend"},
		{"upstream bridge", func(c *Config) { c.Server.Upstream = BackendBridge }, "upstream"},
		{"simulator", func(c *Config) { c.Simulator = "xplane" }, "unknown simulator"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"rate", func(c *Config) { c.Server.RateLimit = -1 }, "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	} {
		cfg.LogLevel = in
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	path := writeFile(t, "backend: bridge\ntimeout: 2s\n")
	t.Setenv("FSUIPC_BACKEND", "native")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := AddFlags(fs)
	flags.AddServerFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-config", path,
		"-backend", "sim",
		"-sim", "p3d64",
		"-advertise",
		"-rate-limit", "25",
		"-burst", "5",
	}))

	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, path, flags.Path())
	assert.Equal(t, BackendSim, cfg.Backend)
	assert.Equal(t, "p3d64", cfg.Simulator)
	assert.Equal(t, 2*time.Second, cfg.Timeout, "file value kept when no flag given")
	assert.True(t, cfg.Server.Advertise)
	assert.Equal(t, 25.0, cfg.Server.RateLimit)
	assert.Equal(t, 5, cfg.Server.Burst)
}

func TestFlagsConfigFromEnvironment(t *testing.T) {
	path := writeFile(t, "backend: sim\n")
	t.Setenv("FSUIPC_CONFIG", path)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSim, cfg.Backend)
}

func TestFlagsValidate(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	flags := AddFlags(fs)

	assert.Error(t, fs.Parse([]string{"-timeout", "soon"}))

	require.NoError(t, fs.Parse([]string{"-backend", "serial"}))
	_, err := flags.Load()
	assert.ErrorContains(t, err, "unknown backend")
}
