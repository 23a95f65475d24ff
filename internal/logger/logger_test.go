package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefault_NopBeforeInitialize(t *testing.T) {
	assert.NotNil(t, Default())
	assert.NotPanics(t, func() { Info("ignored") })
}

func TestInitialize(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Initialize(Config{Debug: true, Fields: map[string]string{"service": "test"}}))
	assert.True(t, Default().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Initialize(Config{}))
	assert.False(t, Default().Core().Enabled(zap.DebugLevel))
}

func TestHelpers_WriteToGlobal(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	Info("minted", zap.Uint16("serial", 1))
	Warn("stub called")
	Error(errors.New("boom"))
	Error(nil)
	Named("presale").Debug("child")

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, "minted", entries[0].Message)
	assert.Equal(t, "boom", entries[2].Message)
	assert.Equal(t, "error occurred", entries[3].Message)
	assert.Equal(t, "presale", entries[4].LoggerName)
}
