// Package config loads runtime configuration for the LeftOverChef CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON/JSONC file selected with -c or --config.
//  3. Environment: LEFTOVERCHEF_SERVER, LEFTOVERCHEF_SESSION, LEFTOVERCHEF_TIMEOUT.
//
// Command-line flags are owned by the cli package and applied on top.
//
// # JSON schema
//
// Durations use timex.Duration, so "30s" and integer nanoseconds both work.
// Comments and trailing commas are accepted:
//
//	{
//	  // where the API lives
//	  "server_url": "http://127.0.0.1:5000",
//	  "session_file": "~/.leftoverchef/session",
//	  "timeout": "60s",
//	}
package config
