package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/bidsfix/internal/adapters/filesystem"
	"github.com/example/bidsfix/internal/config"
	"github.com/example/bidsfix/internal/ports/primary"
)

// UnassignCmd returns the unassign command
func UnassignCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "unassign <bids dataset dir> <sessions>",
		Short: "Remove IntendedFor from the field maps of listed sessions",
		Long: `Remove the IntendedFor field from every field-map sidecar of the listed
sessions, so they can be relinked after files were added or removed.

Only sessions in the sessions file are touched. Every sidecar found below
sub-<subject>/ses-<session>/fmap/ is rewritten with sorted keys.

Examples:
  bidsfix unassign /data/HCA redo.csv
  bidsfix unassign /data/HCA redo.csv --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := filesystem.LoadSessionList(args[1])
			if err != nil {
				return err
			}

			c, _, err := newContainer(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			adapter, err := c.UnassignAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			_, err = adapter.Unassign(cmd.Context(), primary.UnassignRequest{
				Sessions: sessions,
				DryRun:   dryRun,
			})
			return err
		},
	}

	d := config.Default()
	cmd.Flags().String(config.FlagLinkageField, d.LinkageField, "sidecar field holding the linkage")
	cmd.Flags().String(config.FlagSidecarExtension, d.SidecarExtension, "extension of field-map sidecars")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count without writing sidecars")

	return cmd
}
