// Package stats provides the store statistics command.
package stats

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the stats command.
func Command(appCtx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print image record statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := appCtx.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
