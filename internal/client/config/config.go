package config

import "time"

// Config holds runtime settings for the La Bandina CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API, without the /api/v1 prefix.
//   - RequestTimeout: upper bound for a single API call.
//   - SessionFile: where the access and refresh tokens are kept between runs.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	SessionFile    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 10 * time.Second
	c.SessionFile = ".labandina-session.json"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
