// Package rconfig holds rflow's flat, flag-populated process
// configuration. Grounded on the teacher's CLIInvocation
// (internal/cli/input.go): the teacher takes every option from CLI
// flags with no separate config file format, so none is introduced
// here either.
package rconfig

import (
	"os"

	"github.com/otaviog/rflow/internal/ui"
)

// Config bundles the options internal/cli parses once per invocation
// and the rest of the engine otherwise has no way to reach: where the
// signature store lives, how a raised UserError surfaces, and whether
// progress output is colorized or suppressed.
type Config struct {
	CacheDBPath     string
	TracebackPolicy ui.TracebackPolicy
	Color           bool
	Quiet           bool
}

// Load builds a Config from explicit flag values, falling back to the
// RFLOW_CACHE_DB/RFLOW_DEBUG/RFLOW_COLOR/RFLOW_QUIET environment
// variables wherever a flag was left at its zero value — the same
// fallback internal/cli already gave --debug before this package
// existed.
func Load(cacheDBPath string, debug, color, quiet bool) Config {
	if cacheDBPath == "" {
		cacheDBPath = os.Getenv("RFLOW_CACHE_DB")
	}
	if !debug {
		debug = os.Getenv("RFLOW_DEBUG") == "1"
	}
	if !color {
		color = os.Getenv("RFLOW_COLOR") == "1"
	}
	if !quiet {
		quiet = os.Getenv("RFLOW_QUIET") == "1"
	}
	return Config{
		CacheDBPath:     cacheDBPath,
		TracebackPolicy: ui.ExitProcessPolicy{ExitCode: 1, Verbose: debug, Quiet: quiet},
		Color:           color,
		Quiet:           quiet,
	}
}
