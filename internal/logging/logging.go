// Package logging builds the structured JSON loggers used across complybus.
//
// Loggers are plain zerolog values passed through constructors; there is
// no process-wide logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
	Service    string `json:"service" yaml:"service"`
}

// DefaultConfig reads COMPLYBUS_LOG_* variables, falling back to info on stdout.
func DefaultConfig() Config {
	return Config{
		Level:      getEnvOrDefault("COMPLYBUS_LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("COMPLYBUS_DEBUG", false),
		Output:     getEnvOrDefault("COMPLYBUS_LOG_OUTPUT", "stdout"),
		TimeFormat: getEnvOrDefault("COMPLYBUS_LOG_TIME_FORMAT", ""),
		Service:    getEnvOrDefault("COMPLYBUS_SERVICE_NAME", "complybus"),
	}
}

// New builds a logger writing to the configured output.
func New(cfg Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}
	return NewWithWriter(cfg, output)
}

// NewWithWriter is New with an explicit sink, used by tests and the CLI.
func NewWithWriter(cfg Config, output io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel

	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	timeFormat := time.RFC3339
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}
	zerolog.TimeFieldFormat = timeFormat

	service := cfg.Service
	if service == "" {
		service = "complybus"
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger(), nil
}

// WithComponent tags every line written through the returned logger.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// NewTestLogger returns a disabled logger that discards all output.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
