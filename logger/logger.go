// Package logger builds the zerolog loggers used across keyfold.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	fallbacklog "github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogLevelFlag = "loglevel"
	LogFileFlag  = "logfile"

	consoleTimeFormat = time.RFC3339

	rollingMaxSize    = 10 // megabytes
	rollingMaxBackups = 3  // files
	rollingMaxAge     = 28 // days
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
}

// Config selects the outputs and minimum level for a logger.
type Config struct {
	MinLevel string // debug | info | error | fatal
	File     string // rolling log file path; empty disables file output
	NoColor  bool
}

// Create builds a logger writing to the console and, when configured, a
// rolling file. A nil config yields the info-level console logger.
func Create(config *Config) *zerolog.Logger {
	if config == nil {
		config = &Config{MinLevel: "info"}
	}

	writers := []io.Writer{createConsoleLogger(config.NoColor)}
	if config.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    rollingMaxSize,
			MaxBackups: rollingMaxBackups,
			MaxAge:     rollingMaxAge,
		})
	}

	level, levelErr := zerolog.ParseLevel(config.MinLevel)
	if levelErr != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	if levelErr != nil && config.MinLevel != "" {
		log.Error().Msgf("Failed to parse log level %q, using %q instead", config.MinLevel, level)
	}
	return &log
}

func createConsoleLogger(noColor bool) io.Writer {
	consoleOut := os.Stderr
	return zerolog.ConsoleWriter{
		Out:        colorable.NewColorable(consoleOut),
		NoColor:    noColor || !term.IsTerminal(int(consoleOut.Fd())),
		TimeFormat: consoleTimeFormat,
	}
}

// Fallback returns the package-level default logger, for use before flag
// parsing has produced a real one.
func Fallback() *zerolog.Logger {
	failLog := fallbacklog.With().Logger()
	return &failLog
}
