package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitFallsBackToInfoLevel(t *testing.T) {
	defer Set(nil)

	require.NoError(t, Init("not-a-level", "development"))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestWithModuleAddsField(t *testing.T) {
	defer Set(nil)

	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	WithModule("reports").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "hello", entries[0].Message)
	require.Equal(t, "reports", entries[0].ContextMap()["module"])
}

func TestSetNilIsNop(t *testing.T) {
	Set(nil)
	require.NotNil(t, Logger())
	Info("ignored")
}
