// Package cmd holds the command line interface of precivox-images.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/precivox/precivox-images/cmd/batch"
	"github.com/precivox/precivox-images/cmd/cleanup"
	"github.com/precivox/precivox-images/cmd/deactivate"
	"github.com/precivox/precivox-images/cmd/images"
	"github.com/precivox/precivox-images/cmd/resolve"
	"github.com/precivox/precivox-images/cmd/stats"
	"github.com/precivox/precivox-images/cmd/version"
	"github.com/precivox/precivox-images/internal/app"
	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	debug      bool
}

// RootCommand creates and returns the root command
func RootCommand(appCtx *app.Context) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "precivox-images",
		Short:        "PRECIVOX product image resolver",
		Long:         "Resolves product titles to image URLs, reusing stored images before searching Google and Bing.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")

	versionCmd := version.Command(appCtx)
	rootCmd.AddCommand(
		resolve.Command(appCtx),
		batch.Command(appCtx),
		stats.Command(appCtx),
		cleanup.Command(appCtx),
		deactivate.Command(appCtx),
		images.Command(appCtx),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no settings or store
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(appCtx, flags)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		appCtx.Close()
	}

	return rootCmd
}

// initialize loads settings and assembles the service before a subcommand runs.
func initialize(appCtx *app.Context, flags *globalFlags) error {
	settings, err := conf.Load(flags.configFile)
	if err != nil {
		return err
	}

	if flags.debug {
		settings.Debug = true
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	return appCtx.Init(settings)
}

// Execute runs the CLI until it finishes or ctx is cancelled.
func Execute(ctx context.Context, appCtx *app.Context, args []string) error {
	rootCmd := RootCommand(appCtx)
	rootCmd.SetArgs(args)
	// post-run hooks are skipped when a command fails
	defer appCtx.Close()
	return rootCmd.ExecuteContext(ctx)
}
