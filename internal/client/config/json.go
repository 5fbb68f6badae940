package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/leftoverchef/internal/flagx"
	"github.com/dmitrijs2005/leftoverchef/internal/timex"
	"github.com/tidwall/jsonc"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Empty fields
// leave the current value alone.
type JsonConfig struct {
	ServerURL   string         `json:"server_url"`
	SessionFile string         `json:"session_file"`
	Timeout     timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the file given by -c/--config in args, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.SessionFile != "" {
		cfg.SessionFile = jc.SessionFile
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
