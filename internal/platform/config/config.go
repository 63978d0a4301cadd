// Package config loads binary configuration from the environment and
// provides the shared fatal-exit helper for entry points.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from environment variables using its env
// struct tags. Fields with envDefault keep that value when the
// variable is unset.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf prints a formatted message to stderr followed by a newline and
// terminates the process with status 1. Binaries use it for fatal
// startup failures before logging is wired.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
