package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestErrorPrependsErrAndDropsDanglingKey(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))

	Error("lookup failed", errors.New("boom"), "identifier", "a@b.c", "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lookup failed", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "a@b.c", fields["identifier"])
	assert.Contains(t, fields, "err")
	assert.NotContains(t, fields, "dangling")
}

func TestPairsSkipsNonStringKeys(t *testing.T) {
	got := pairs([]any{"a", 1, 2, 3, "b", "x"})
	assert.Equal(t, []any{"a", 1, "b", "x"}, got)
}
