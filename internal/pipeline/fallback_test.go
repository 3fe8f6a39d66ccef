package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

func testLogger() logger.Logger {
	l := logger.NewApiLogger(&config.Config{Logger: config.Logger{Level: "error", Encoding: "console"}})
	l.InitLogger()
	return l
}

func TestTryEachFirstSuccessWins(t *testing.T) {
	var ran []string
	strategies := []Strategy{
		{Name: "a", Run: func(context.Context) error { ran = append(ran, "a"); return errors.New("boom") }},
		{Name: "b", Run: func(context.Context) error { ran = append(ran, "b"); return nil }},
		{Name: "c", Run: func(context.Context) error { ran = append(ran, "c"); return nil }},
	}

	winner, err := TryEach(context.Background(), testLogger(), "test", strategies)
	require.NoError(t, err)
	assert.Equal(t, "b", winner)
	assert.Equal(t, []string{"a", "b"}, ran, "later strategies must not run after a success")
}

func TestTryEachExhaustion(t *testing.T) {
	strategies := []Strategy{
		{Name: "a", Run: func(context.Context) error { return errors.New("first") }},
		{Name: "b", Run: func(context.Context) error { return errors.New("last") }},
	}

	_, err := TryEach(context.Background(), testLogger(), "test", strategies)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 strategies exhausted")
	assert.Contains(t, err.Error(), "last", "the final attempt's error is preserved")
}

func TestTryEachHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategies := []Strategy{
		{Name: "a", Run: func(context.Context) error { t.Fatal("must not run"); return nil }},
	}
	_, err := TryEach(ctx, testLogger(), "test", strategies)
	assert.ErrorIs(t, err, context.Canceled)
}
