// Package flagx lets several independent flag sets share os.Args without
// tripping over each other's flags.
package flagx

import (
	"strings"

	"github.com/spf13/pflag"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
// Both "-c conf.yaml" and "--config=conf.yaml" forms are recognised; a
// following token is treated as a value unless it starts with "-".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given with -c / --config.
// Everything else in args is ignored. Returns "" when the flag is absent.
func ConfigFileFlag(args []string) string {
	var path string

	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.StringVarP(&path, "config", "c", "", "path to config file (.json, .jsonc, .yaml)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "--config"}))

	return path
}
