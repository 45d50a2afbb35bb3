package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger on stderr, leaving stdout to command
// output. Development environments get a human-readable console writer,
// everything else JSON lines.
func NewLogger(appEnv string, level string) zerolog.Logger {
	return newLogger(os.Stderr, appEnv, level)
}

func newLogger(out io.Writer, appEnv string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if appEnv == "dev" || appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger
}
