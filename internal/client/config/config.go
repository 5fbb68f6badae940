package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/timex"
)

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API.
//   - SessionFile: where the bearer token is kept between runs.
//   - Timeout: per-request timeout; uploads wait for inference, so keep it generous.
type Config struct {
	ServerURL   string
	SessionFile string
	Timeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.SessionFile = defaultSessionFile()
	c.Timeout = 60 * time.Second
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".leftoverchef-session"
	}
	return filepath.Join(dir, "leftoverchef", "session")
}

// LoadConfig applies defaults, then the config file named in args, then the
// environment.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("LEFTOVERCHEF_SERVER"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := lookup("LEFTOVERCHEF_SESSION"); ok && v != "" {
		cfg.SessionFile = v
	}
	if v, ok := lookup("LEFTOVERCHEF_TIMEOUT"); ok && v != "" {
		d, err := timex.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEFTOVERCHEF_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}
