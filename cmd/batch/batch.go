// Package batch provides the batch resolution command.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/internal/app"
)

type options struct {
	scope  string
	file   string
	asJSON bool
}

// Command creates the batch command.
func Command(appCtx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "batch [title...]",
		Short: "Resolve many product titles",
		Long: `Resolves titles given as arguments and, with --file, one title per line read
from a file ("-" reads standard input). Titles resolve in windows of the
configured batch size with the configured delay in between.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			titles := args
			if opts.file != "" {
				fromFile, err := readTitles(cmd.InOrStdin(), opts.file)
				if err != nil {
					return err
				}
				titles = append(titles, fromFile...)
			}
			if len(titles) == 0 {
				return fmt.Errorf("no titles given, pass them as arguments or with --file")
			}

			results := appCtx.Service.ResolveMany(cmd.Context(), titles, opts.scope)
			return writeResults(cmd.OutOrStdout(), titles, results, opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "", "Market the titles belong to")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "File with one title per line, - for stdin")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print a JSON object mapping titles to URLs")
	return cmd
}

// readTitles returns the non-blank lines of path.
func readTitles(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open titles file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var titles []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			titles = append(titles, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	return titles, nil
}

// writeResults prints one "title<TAB>url" line per unique title in input order.
func writeResults(w io.Writer, titles []string, results map[string]string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	}

	seen := make(map[string]struct{}, len(results))
	for _, title := range titles {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", title, results[title]); err != nil {
			return err
		}
	}
	return nil
}
