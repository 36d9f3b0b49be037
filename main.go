package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/precivox/precivox-images/cmd"
	"github.com/precivox/precivox-images/internal/app"
	"github.com/precivox/precivox-images/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=...".
var (
	version   string
	buildDate string
	commit    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	appCtx := app.NewContext(buildinfo.NewContext(version, buildDate, commit))
	err := cmd.Execute(ctx, appCtx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
