package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	initOnce sync.Once
	logger   zerolog.Logger
)

// initLogger initializes the global logger to write to stderr with
// RFC3339 timestamps. Default minimum level is INFO. The logger value
// is never reassigned after this; level changes go through zerolog's
// atomic global level, so concurrent logging needs no lock.
func initLogger() {
	initOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(os.Stderr).
			With().Timestamp().Logger()
	})
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case LevelInfo:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case LevelError:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debug().Fields(kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Info().Fields(kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	// Error is always carried as a structured field, like the rest of
	// the key-value pairs.
	initLogger()
	logger.Error().Err(err).Fields(kv).Msg(msg)
}
