// Command seed loads a raw accidents CSV export into the warehouse source
// table, optionally down-sampling it first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/severity/pkg/config"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/warehouse"
)

func main() {
	csvPath := flag.String("csv", "data/US_Accidents_March23.csv", "raw CSV export")
	sample := flag.Int("sample", 0, "keep at most this many rows (0 keeps all)")
	seed := flag.Uint64("seed", 0, "sampling seed (defaults to SEED)")
	flag.Parse()

	if err := run(*csvPath, *sample, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %+v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string, sample int, seed uint64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProvider(level))
	logger := log.GetLoggerWithName("seed")
	if seed == 0 {
		seed = cfg.Seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(csvPath)
	if err != nil {
		return scierrors.Wrapf(err, "open %s", csvPath)
	}
	defer f.Close()

	frame, err := warehouse.ReadCSV(f)
	if err != nil {
		return err
	}
	read := frame.Len()
	if sample > 0 {
		frame = warehouse.Sample(frame, sample, seed)
	}

	w, err := warehouse.Open(cfg.Path(cfg.DBPath),
		warehouse.WithTable(cfg.SourceTable), warehouse.WithLogger(logger))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.CreateSourceTable(ctx); err != nil {
		return err
	}
	n, err := w.InsertFrame(ctx, frame)
	if err != nil {
		return err
	}
	logger.Info("Seed finished", "read", read, log.SamplesKey, n, "table", w.Table())
	return nil
}
