package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	envLevel  = "LOG_LEVEL"
	envFormat = "LOG_FORMAT"

	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	// Global logger instance
	Logger = zerolog.Nop()
)

// Initialize sets up the global logger writing to stdout.
func Initialize(level, format string) zerolog.Logger {
	return InitializeWriter(os.Stdout, level, format)
}

// InitializeFromEnv reads LOG_LEVEL and LOG_FORMAT.
func InitializeFromEnv() zerolog.Logger {
	return Initialize(os.Getenv(envLevel), os.Getenv(envFormat))
}

// InitializeWriter sets up the global logger on out. Unknown levels fall back
// to info; any format other than json renders through a console writer.
func InitializeWriter(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = out
	if strings.ToLower(strings.TrimSpace(format)) != FormatJSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	Logger = zerolog.New(w).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(level))

	// Replace standard log with zerolog
	log.Logger = Logger
	return Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetForComponent returns a logger with a component field for better filtering
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
