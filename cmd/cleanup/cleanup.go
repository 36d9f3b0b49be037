// Package cleanup provides the command that purges inactive image records.
package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the cleanup command.
func Command(appCtx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete inactive image records",
		Long:  `Permanently removes image records that were deactivated. Active records are never touched.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := appCtx.Service.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d inactive image records\n", removed)
			return err
		},
	}
}
