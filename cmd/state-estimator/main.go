// Package main is the state-estimator command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.viam.com/stateestimator/cli"
	"go.viam.com/stateestimator/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		logger := logging.NewLogger("state-estimator")
		logger.Error(err)
		//nolint:errcheck
		logger.Sync()
		os.Exit(1)
	}
}
