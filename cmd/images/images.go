// Package images provides the command listing the images of a market.
package images

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the images command.
func Command(appCtx *app.Context) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List active images first resolved for a market",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := appCtx.Service.ImagesByScope(cmd.Context(), scope)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tPROVIDER\tCREATED\tURL")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Key, r.Provider, r.CreatedAt.Format(time.DateTime), r.URL)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Market identifier")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}
