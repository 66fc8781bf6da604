package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/model"
)

func TestRunnerRejectsOverlappingTrigger(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	runner := NewRunner(func(_ context.Context) (*Ledger, error) {
		started <- struct{}{}
		<-release
		return &Ledger{}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		done <- err
	}()
	<-started

	// Second trigger while the first is mid-flight.
	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)

	// Once the run finishes the runner accepts triggers again.
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
}

func TestRunnerPreventsDuplicateDesiredSet(t *testing.T) {
	gw := newFakeGateway()
	tokens := &fakeTokens{}
	e := newEngine(t, gw, tokens, "X")

	// The first create blocks until the competing trigger has been
	// turned away, guaranteeing the runs actually overlap.
	entered := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	gw.createHook = func(_ string, _ model.DesiredEvent) error {
		once.Do(func() {
			close(entered)
			<-proceed
		})
		return nil
	}

	runner := NewRunner(func(ctx context.Context) (*Ledger, error) {
		return e.Reconcile(ctx, testRoster(t))
	})

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		done <- err
	}()
	<-entered

	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)

	close(proceed)
	require.NoError(t, <-done)

	// A second engine pass never started, so the desired set exists
	// exactly once on the remote calendar.
	assert.Len(t, gw.events(), 3)
	assert.Equal(t, 3, gw.createCalls)
}
