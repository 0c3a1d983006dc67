package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		" info ":  InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climbstats", "test", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", Fields{"k": "v"})
	logger.Error(ctx, "error", nil, errors.New("boom"))

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "v", entries[0].Fields["k"])
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "boom", entries[1].Error)
	assert.NotEmpty(t, entries[1].File)
}

func TestStructuredLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climbstats", "test", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithRunID(WithRequestID(context.Background(), "req-1"), "run-1")
	logger.Info(ctx, "hello", nil)

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "run-1", entries[0].RunID)
	assert.Equal(t, "climbstats", entries[0].Service)
}

func TestStructuredLogger_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climbstats", "test", InfoLevel)
	logger.SetOutput(&buf)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(context.Background(), "[FATAL] stop", nil, errors.New("bad workbook"))

	assert.Equal(t, 1, code)
	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "FATAL", entries[0].Level)
	assert.NotEmpty(t, entries[0].StackTrace)
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climbstats", "test", InfoLevel)
	logger.SetOutput(&buf)

	scoped := logger.WithFields(Fields{"filter": "Ice", "stage": "AGGREGATE"})
	scoped.Info(context.Background(), "rows", Fields{"stage": "WRITE", "rows": 3})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ice", entries[0].Fields["filter"])
	assert.Equal(t, "WRITE", entries[0].Fields["stage"])
	assert.EqualValues(t, 3, entries[0].Fields["rows"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error(context.Background(), "ignored", nil, errors.New("x"))
}
