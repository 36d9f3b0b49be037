// Package version provides the version command.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the version command.
func Command(appCtx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := appCtx.BuildInfo
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "precivox-images %s (commit %s, built %s)\n",
				info.Version(), info.Commit(), info.BuildDate())
			return err
		},
	}
}
