// Package deactivate provides the command that retires a stored image.
package deactivate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the deactivate command.
func Command(appCtx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a stored image record",
		Long:  `Marks the record inactive so the next resolution of its title searches the providers again.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := appCtx.Service.Deactivate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s (%s)\n", record.ID, record.Key)
			return err
		},
	}
}
