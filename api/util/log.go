package util

import (
	"os"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/zerologadapter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger. Anything other than
// "json" as format gets a console writer.
func SetupLogger(level string, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// DatabaseLogger routes pgx query logs to the global logger.
func DatabaseLogger() pgx.Logger {
	return zerologadapter.NewLogger(log.Logger.With().Str("component", "db").Logger())
}

// DatabaseLogLevel maps the global zerolog level to the matching pgx level.
func DatabaseLogLevel() pgx.LogLevel {
	switch zerolog.GlobalLevel() {
	case zerolog.TraceLevel:
		return pgx.LogLevelTrace
	case zerolog.DebugLevel:
		return pgx.LogLevelDebug
	case zerolog.InfoLevel:
		return pgx.LogLevelInfo
	case zerolog.WarnLevel:
		return pgx.LogLevelWarn
	default:
		return pgx.LogLevelError
	}
}
