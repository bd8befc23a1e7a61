package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixWriterBuffersPartialLines(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter("> ", &out)

	n, err := pw.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	assert.Equal(t, len("first line\nsecond "), n)
	assert.Equal(t, "> first line\n", out.String())

	_, err = pw.Write([]byte("half\n"))
	require.NoError(t, err)
	assert.Equal(t, "> first line\n> second half\n", out.String())
}

func TestNewLoggerPrefixesTextOutput(t *testing.T) {
	var out bytes.Buffer
	logger := NewLoggerWithFormat("themepack-test", "info", false, &out)

	logger.Info("packed atlas", "entries", 3)
	logger.Debug("not shown")

	line := out.String()
	assert.True(t, strings.HasPrefix(line, logPrefix), "line %q", line)
	assert.Contains(t, line, "packed atlas")
	assert.Contains(t, line, "entries=3")
	assert.NotContains(t, line, "not shown")
}

func TestNewLoggerJSONLevelSyntax(t *testing.T) {
	var out bytes.Buffer
	logger := NewLoggerWithFormat("themepack-test", "json:debug", false, &out)

	logger.Debug("validated package", "status", "compatible")

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "validated package", record["@message"])
	assert.Equal(t, "compatible", record["status"])
}

func TestGetLogLevelDefaultsToWarn(t *testing.T) {
	t.Setenv(envLogLevel, "")
	assert.Equal(t, "warn", GetLogLevel())

	t.Setenv(envLogLevel, "trace")
	assert.Equal(t, "trace", GetLogLevel())
}
