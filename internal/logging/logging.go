// Package logging builds the structured logger shared by all commands.
// Logs go to stderr; stdout is reserved for reports.
package logging

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the logger.
type Options struct {
	Verbose bool   // debug level instead of info
	Format  string // FormatJSON or FormatConsole
	RunID   string // generated when empty
}

// New builds a logger carrying a run_id field. It returns the run ID used.
func New(opts Options) (*zap.Logger, string, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, "", err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger, err := config.Build(zap.Fields(zap.String("run_id", runID)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, runID, nil
}

func newConfig(opts Options) (zap.Config, error) {
	var config zap.Config
	switch opts.Format {
	case "", FormatJSON:
		config = zap.NewProductionConfig()
	case FormatConsole:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		config.DisableStacktrace = true
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q (want %s or %s)", opts.Format, FormatJSON, FormatConsole)
	}
	if opts.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config, nil
}
