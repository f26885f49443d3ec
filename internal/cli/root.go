// Package cli defines the bidsfix cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/bidsfix/internal/config"
	"github.com/example/bidsfix/internal/ctxutil"
	"github.com/example/bidsfix/internal/logging"
	"github.com/example/bidsfix/internal/version"
	"github.com/example/bidsfix/internal/wire"
)

// RootCmd returns the bidsfix root command with every subcommand attached.
func RootCmd() *cobra.Command {
	var (
		verbose   bool
		logFormat string
	)

	cmd := &cobra.Command{
		Use:     "bidsfix",
		Short:   "Link field maps to functional runs in BIDS datasets",
		Version: version.String(),
		Long: `bidsfix maintains the IntendedFor field of field-map sidecars in
HCP-style BIDS datasets.

Sessions whose acquisitions follow the protocol get each reversed-polarity
field-map pair linked to the functional runs it corrects; all other sessions
are reported for manual review. The report is written to stdout as CSV, logs
go to stderr.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid by now; later errors are not usage errors.
			cmd.SilenceUsage = true

			logger, runID, err := logging.New(logging.Options{
				Verbose: verbose,
				Format:  logFormat,
			})
			if err != nil {
				return err
			}
			ctx := ctxutil.WithLogger(cmd.Context(), logger)
			ctx = ctxutil.WithRunID(ctx, runID)
			cmd.SetContext(ctx)
			logger.Debug("command started", zap.String("command", cmd.CommandPath()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = ctxutil.LoggerFromContext(cmd.Context()).Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatJSON, "log format: json or console")
	cmd.PersistentFlags().String("config", "", "config file (default <dataset>/"+config.FileName+")")

	cmd.AddCommand(AssignCmd())
	cmd.AddCommand(UnassignCmd())
	cmd.AddCommand(IndexCmd())
	cmd.AddCommand(DoctorCmd())
	cmd.AddCommand(VersionCmd())

	return cmd
}

// loadConfig layers the config file and the command's flags over the defaults.
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// newContainer builds the dependency container for the dataset at root.
func newContainer(cmd *cobra.Command, root string) (*wire.Container, *config.Config, error) {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, nil, err
	}
	c := wire.New(wire.Options{
		Root:   root,
		Config: cfg,
		Logger: ctxutil.LoggerFromContext(cmd.Context()),
	})
	return c, cfg, nil
}
