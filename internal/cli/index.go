package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/bidsfix/internal/db"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "index <bids dataset dir>",
		Short: "Scan a dataset into a sqlite index",
		Long: `Walk the dataset once and store every acquisition in a sqlite index.
Later runs pass --index-db to query the index instead of walking the tree,
which matters for datasets on network filesystems.

The index is replaced on every run.

Examples:
  bidsfix index /data/HCA
  bidsfix index /data/HCA --db /scratch/hca.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := newContainer(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			path := dbPath
			if path == "" {
				path = cfg.IndexDB
			}
			if path == "" {
				path, err = db.DefaultPath(args[0])
				if err != nil {
					return err
				}
			}

			adapter, err := c.IndexAdapter(path, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.Build(cmd.Context(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "index database (default ~/.bidsfix/index/<dataset>.db)")

	return cmd
}
