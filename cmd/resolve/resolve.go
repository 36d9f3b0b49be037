// Package resolve provides the single title resolution command.
package resolve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

// Command creates the resolve command.
func Command(appCtx *app.Context) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Resolve one product title to an image URL",
		Long: `Looks up the stored image for the product title and searches the configured
providers when there is none. A placeholder URL is printed when no image is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := appCtx.Service.ResolveOne(cmd.Context(), args[0], scope)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Market the title belongs to")
	return cmd
}
