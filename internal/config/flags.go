package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Flags binds the shared command line flags to a FlagSet. Flags are
// applied after the file and the environment, and only when given.
type Flags struct {
	path    string
	pending []func(*Config) error
}

// AddFlags registers -config and the shared overrides on fs.
func AddFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{path: os.Getenv(EnvPrefix + "_CONFIG")}

	fs.StringVar(&f.path, "config", f.path, "Configuration file path (env FSUIPC_CONFIG)")
	f.str(fs, "backend", "Backend: window, native, bridge, sim", func(c *Config, v string) { c.Backend = v })
	f.str(fs, "sim", "Required simulator: any, fsx, p3d64, msfs, ...", func(c *Config, v string) { c.Simulator = v })
	f.str(fs, "bridge", "Bridge address host:port (empty discovers over mDNS)", func(c *Config, v string) { c.Bridge.Address = v })
	f.str(fs, "log-level", "Log level: debug, info, warn, error", func(c *Config, v string) { c.LogLevel = v })
	f.str(fs, "protocol-log", "Write protocol events to this .flog file", func(c *Config, v string) { c.ProtocolLog = v })
	f.str(fs, "catalog", "Offset catalogue YAML merged over the built-in one", func(c *Config, v string) { c.Catalog = v })
	f.duration(fs, "timeout", "Request timeout", func(c *Config, v time.Duration) { c.Timeout = v })
	return f
}

// AddServerFlags registers the fsuipc-bridge overrides on fs.
func (f *Flags) AddServerFlags(fs *flag.FlagSet) {
	f.str(fs, "listen", "Listen address", func(c *Config, v string) { c.Server.Listen = v })
	f.str(fs, "name", "Bridge name reported to clients", func(c *Config, v string) { c.Server.Name = v })
	f.str(fs, "upstream", "Upstream backend: window, native, sim", func(c *Config, v string) { c.Server.Upstream = v })
	f.str(fs, "metrics", "Prometheus listen address (empty disables)", func(c *Config, v string) { c.Server.Metrics = v })
	f.boolean(fs, "advertise", "Advertise over mDNS", func(c *Config, v bool) { c.Server.Advertise = v })
	f.float(fs, "rate-limit", "Process requests per second per connection (0 unlimited)", func(c *Config, v float64) { c.Server.RateLimit = v })
	fs.Func("burst", "Rate limit burst", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		f.pending = append(f.pending, func(c *Config) error { c.Server.Burst = n; return nil })
		return nil
	})
}

// Path returns the configuration file path.
func (f *Flags) Path() string {
	return f.path
}

// Load builds the configuration after fs.Parse and validates it.
func (f *Flags) Load() (*Config, error) {
	cfg, err := Load(f.path)
	if err != nil {
		return nil, err
	}
	for _, apply := range f.pending {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) str(fs *flag.FlagSet, name, usage string, set func(*Config, string)) {
	fs.Func(name, usage, func(s string) error {
		f.pending = append(f.pending, func(c *Config) error { set(c, s); return nil })
		return nil
	})
}

func (f *Flags) duration(fs *flag.FlagSet, name, usage string, set func(*Config, time.Duration)) {
	fs.Func(name, usage, func(s string) error {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		f.pending = append(f.pending, func(c *Config) error { set(c, d); return nil })
		return nil
	})
}

func (f *Flags) float(fs *flag.FlagSet, name, usage string, set func(*Config, float64)) {
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f.pending = append(f.pending, func(c *Config) error { set(c, v); return nil })
		return nil
	})
}

func (f *Flags) boolean(fs *flag.FlagSet, name, usage string, set func(*Config, bool)) {
	fs.BoolFunc(name, usage, func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		f.pending = append(f.pending, func(c *Config) error { set(c, v); return nil })
		return nil
	})
}
