package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thep200/github-top100/pkg/log"
)

func newTestRunner(t *testing.T, source *fakeSource, store *fakeStore) *Runner {
	t.Helper()
	logger, _ := log.NewCslLogger()
	return NewRunner(logger, newTestOrchestrator(t, source, store, nil), nil)
}

func TestRunner_RunOnce(t *testing.T) {
	source := &fakeSource{refs: refs(2)}
	store := &fakeStore{cursor: 1}
	r := newTestRunner(t, source, store)

	result, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.PassID)

	stats := r.Stats()
	assert.False(t, stats.IsRunning)
	assert.Equal(t, 1, stats.Passes)
	assert.Equal(t, 2, stats.ReposProcessed)
	assert.Empty(t, stats.LastError)
	require.NotNil(t, stats.LastResult)
	assert.Equal(t, int64(21), stats.LastResult.CursorAfter)

	second, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, result.PassID, second.PassID)
}

func TestRunner_RejectsConcurrentPass(t *testing.T) {
	source := &fakeSource{refs: refs(1), block: make(chan struct{}), started: make(chan struct{})}
	store := &fakeStore{cursor: 1}
	r := newTestRunner(t, source, store)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()

	<-source.started
	assert.True(t, r.Stats().IsRunning)

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrPassInProgress)

	close(source.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, r.Stats().Passes)
}

func TestRunner_RecordsFailure(t *testing.T) {
	source := &fakeSource{listErr: rateLimited()}
	store := &fakeStore{cursor: 1}
	r := newTestRunner(t, source, store)

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)

	stats := r.Stats()
	assert.Equal(t, 1, stats.FailedPasses)
	assert.NotEmpty(t, stats.LastError)
}

func TestRunner_Run(t *testing.T) {
	source := &fakeSource{refs: refs(1)}
	store := &fakeStore{cursor: 1}
	r := newTestRunner(t, source, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return r.Stats().Passes >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPassOutcome(t *testing.T) {
	assert.Equal(t, "ok", passOutcome(PassResult{CursorBefore: 1, CursorAfter: 5}, nil))
	assert.Equal(t, "empty", passOutcome(PassResult{CursorBefore: 1, CursorAfter: 1}, nil))
	assert.Equal(t, "empty", passOutcome(PassResult{Wrapped: true, CursorBefore: 9, CursorAfter: 1}, nil))
	assert.Equal(t, "rate_limited", passOutcome(PassResult{}, rateLimited()))
	assert.Equal(t, "failed", passOutcome(PassResult{}, assert.AnError))
}
