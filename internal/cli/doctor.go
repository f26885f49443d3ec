package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/bidsfix/internal/config"
)

// DoctorCmd returns the doctor command for sidecar validation
func DoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor <bids dataset dir>",
		Short: "Validate field-map sidecars and their IntendedFor targets",
		Long: `Check every field-map sidecar of the dataset.

Validates:
- the sidecar parses as a JSON object
- known fields have the expected types and values
- every IntendedFor entry names a file that exists

Examples:
  bidsfix doctor /data/HCA         # exit code 1 when problems are found`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newContainer(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			adapter, err := c.DoctorAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.Check(cmd.Context())
			return err
		},
	}

	d := config.Default()
	cmd.Flags().String(config.FlagLinkageField, d.LinkageField, "sidecar field holding the linkage")
	cmd.Flags().String(config.FlagSidecarExtension, d.SidecarExtension, "extension of field-map sidecars")
	cmd.Flags().String(config.FlagIndexDB, "", "query this sqlite index instead of walking the dataset")

	return cmd
}
