// Command severity runs the full accident severity pipeline: load from the
// warehouse, preprocess, cross-validate the four candidates, evaluate them on
// the held-out split and publish the comparison.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/severity/pkg/config"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "severity: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProvider(level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := runner.NewEnv(cfg, runner.WithLogger(log.GetLoggerWithName("severity")))
	if err != nil {
		return err
	}
	defer env.Close()

	_, err = env.Run(ctx)
	return err
}
