/**
 * @description
 * This package constructs the service-wide zerolog logger: human-readable
 * console output in development, JSON elsewhere, with the level taken from
 * configuration.
 *
 * @dependencies
 * - os, strings, time: Standard Go libraries.
 * - github.com/rs/zerolog: Structured logging.
 */

package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs a zerolog.Logger with sane defaults for the service.
func New(appEnv, level string) zerolog.Logger {
	logLevel := zerolog.InfoLevel
	if appEnv == "development" {
		logLevel = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		logLevel = parsed
	}

	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}
