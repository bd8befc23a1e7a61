package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	envLogLevel = "THEMEPACK_LOG_LEVEL"
	envJSONLog  = "THEMEPACK_JSON_LOG"
	logPrefix   = "🎨 "
)

// NewLogger creates a new hclog logger with standard settings.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	return NewLoggerWithFormat(name, level, os.Getenv(envJSONLog) == "1", output)
}

// NewLoggerWithFormat is NewLogger with the JSON switch made explicit, for
// callers that read it from a config file instead of the environment.
func NewLoggerWithFormat(name string, level string, jsonFormat bool, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	// "json:debug" selects JSON output at debug level
	if rest, ok := strings.CutPrefix(level, "json"); ok {
		jsonFormat = true
		level = strings.TrimPrefix(rest, ":")
		if level == "" {
			level = "info"
		}
	}

	if !jsonFormat {
		output = NewPrefixWriter(logPrefix, output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	level := os.Getenv(envLogLevel)
	if level == "" {
		level = "warn"
	}
	return level
}

// OrNull returns logger, or a null logger when logger is nil.
func OrNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}
