package config

import "time"

// Config holds runtime settings for the scanning console.
//
// Fields:
//   - GatewayBaseURL: scheme://host:port of the task/package gateway.
//   - RequestTimeout: timeout applied to read requests (task/manifest
//     fetches). Write requests run without a timeout so a sent scan is never
//     abandoned mid-flight.
//   - SoundAlerts: whether the console emits audible scan cues.
//   - StrictMatchAlert: whether a not-matched scan additionally blocks until
//     the operator acknowledges it.
//   - DebounceWindow: quiescence window for the expected-unscanned display.
type Config struct {
	GatewayBaseURL   string
	RequestTimeout   time.Duration
	SoundAlerts      bool
	StrictMatchAlert bool
	DebounceWindow   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.SoundAlerts = true
	c.StrictMatchAlert = false
	c.DebounceWindow = 300 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including an optional .env file), a JSON file (if given
// via -c/-config) and command-line flags. Later sources take precedence over
// earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
