package log

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelDebug)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetLevel(LevelError)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	SetLevel(LevelInfo)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	// Unknown levels leave the current level untouched.
	SetLevel(Level("TRACE?"))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestConcurrentLoggingAndLevelChanges(t *testing.T) {
	defer SetLevel(LevelInfo)

	// Exercised under the race detector: logging from many goroutines
	// while the level flips must be safe.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("worker tick", "worker", n, "iteration", j)
				Debug("worker detail", "worker", n)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		SetLevel(LevelError)
		SetLevel(LevelInfo)
	}
	wg.Wait()
}
