package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	session := Component(logger, "session")
	session.Warn().Str("state", "LoggedOut").Msg("visible")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "visible", record["message"])
	assert.Equal(t, "session", record["component"])
	assert.Equal(t, "LoggedOut", record["state"])
	assert.Contains(t, record, "time")
}

func TestNewConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New("debug", "console", &buf)
	require.NoError(t, err)

	logger.Debug().Msg("tick")
	assert.Contains(t, buf.String(), "tick")
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		level  string
		format string
	}{
		{name: "bad level", level: "loud", format: "json"},
		{name: "bad format", level: "info", format: "xml"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.level, tc.format, &bytes.Buffer{})
			require.Error(t, err)
		})
	}

	_, err := New("info", "xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
