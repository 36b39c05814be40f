package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rflorenc/scm-migration-workbench/internal/cli"
	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date}, os.Args[1:])
	stop()
	os.Exit(exitcode.FromError(err))
}
