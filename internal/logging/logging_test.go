package logging

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
	}{
		{"json default", Options{}, false},
		{"json verbose", Options{Format: FormatJSON, Verbose: true}, true},
		{"console", Options{Format: FormatConsole}, false},
		{"console verbose", Options{Format: FormatConsole, Verbose: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, runID, err := New(tt.opts)
			require.NoError(t, err)
			defer logger.Sync()

			_, err = uuid.Parse(runID)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestNew_KeepsRunID(t *testing.T) {
	_, runID, err := New(Options{RunID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", runID)
}

func TestNew_UnknownFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestNewConfig_ConsoleHasNoStacktraces(t *testing.T) {
	config, err := newConfig(Options{Format: FormatConsole, Verbose: true})
	require.NoError(t, err)
	assert.True(t, config.DisableStacktrace)
	assert.Equal(t, []string{"stderr"}, config.OutputPaths)
}
