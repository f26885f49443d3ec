package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/bidsfix/internal/adapters/filesystem"
	"github.com/example/bidsfix/internal/config"
	"github.com/example/bidsfix/internal/ports/primary"
)

// AssignCmd returns the assign command
func AssignCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "assign <bids dataset dir> [sessions]",
		Short: "Link field maps to functional runs and report the outcome",
		Long: `Link each reversed-polarity field-map pair to the functional runs it
corrects by writing their paths into the IntendedFor field of both sidecars.

Resting-state runs each get their own field-map pair (matched by run number);
task scans share the field-map run reserved for them. Sessions that do not
follow the protocol are left untouched and reported with a reason.

Without a sessions file every session in the dataset is processed. The
sessions file has one "subject,session" row per line.

Examples:
  bidsfix assign /data/HCA > report.csv
  bidsfix assign /data/HCA sessions.csv --jobs 8
  bidsfix assign /data/HCA --dry-run --index-db ~/.bidsfix/index/HCA.db`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessions []primary.SessionRef
			if len(args) == 2 {
				list, err := filesystem.LoadSessionList(args[1])
				if err != nil {
					return err
				}
				sessions = list
			}

			c, cfg, err := newContainer(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			adapter, err := c.AssignAdapter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			_, err = adapter.Assign(cmd.Context(), primary.AssignRequest{
				Sessions: sessions,
				DryRun:   dryRun,
				Jobs:     cfg.Jobs,
			})
			return err
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing sidecars")

	return cmd
}
