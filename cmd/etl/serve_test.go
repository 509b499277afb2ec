package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunInBackground_FailureStopsServer(t *testing.T) {
	var stopped atomic.Bool
	done := runInBackground(context.Background(), func(context.Context) error {
		return errors.New("compute: quota exceeded")
	}, func() { stopped.Store(true) }, discardLogger())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	case <-time.After(time.Second):
		t.Fatal("run did not finish")
	}
	assert.True(t, stopped.Load())
}

func TestRunInBackground_Success(t *testing.T) {
	var stopped atomic.Bool
	done := runInBackground(context.Background(), func(context.Context) error {
		return nil
	}, func() { stopped.Store(true) }, discardLogger())

	assert.NoError(t, <-done)
	assert.False(t, stopped.Load())
}

func TestRunInBackground_ShutdownIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Bool
	done := runInBackground(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, func() { stopped.Store(true) }, discardLogger())

	cancel()
	assert.NoError(t, <-done)
	assert.False(t, stopped.Load())
}
