// Package bootstrap initializes logging configuration before other packages.
//
// This package MUST be imported first (using a blank import) in main.go so its
// init() runs before any package builds a zerolog logger.
package bootstrap

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/joeblew999/cfdeploy/internal/config"
)

func init() {
	level := os.Getenv(config.KeyLogLevel)
	if level == "" {
		level = "info"
	}

	// Respect user's setting (e.g., CFDEPLOY_LOG_LEVEL=debug)
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
}
