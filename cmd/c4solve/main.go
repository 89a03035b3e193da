// Command c4solve drives a breadth-first census of a Connect-Four-shaped
// strong-solution proof tree, depth 0 through 42, reporting per-ply
// counts as CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4proof/bfs"
	"github.com/domino14/c4proof/config"
	"github.com/domino14/c4proof/hashtable"
	"github.com/domino14/c4proof/oracle"
	"github.com/domino14/c4proof/report"
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		panic(err)
	}

	var logger zerolog.Logger
	switch cfg.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
		logger = zerolog.New(os.Stderr).Level(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel)
	}
	logger = logger.With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger

	log.Info().Str("exe-path", exPath).Msg("starting census")
	log.Info().
		Str("oracle-cmd", cfg.OracleCmd).
		Int("threads", cfg.Threads).
		Uint64("capacity", cfg.Capacity).
		Float64("capacity-fraction", cfg.CapacityFraction).
		Int("sharded-drain", cfg.ShardedDrain).
		Msg("loaded config")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("fatal error")
		fmt.Fprintf(os.Stderr, "c4solve: fatal: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("census complete")
}

func run(cfg *config.Config) error {
	if cfg.Threads <= 0 {
		return fmt.Errorf("c4solve: -threads must be positive")
	}

	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = hashtable.SizeForMemoryFraction(cfg.CapacityFraction)
	}
	log.Info().Uint64("capacity", capacity).Msg("sizing frontier tables")

	var tables [2]*hashtable.Table
	for i := range tables {
		t, err := hashtable.New(capacity)
		if err != nil {
			return fmt.Errorf("c4solve: allocating frontier table %d: %w", i, err)
		}
		tables[i] = t
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal, cancelling run")
		cancel()
	}()

	pool, err := oracle.NewPipePool(ctx, cfg.OracleCmd, cfg.Threads)
	if err != nil {
		return fmt.Errorf("c4solve: starting oracle pool: %w", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Warn().Err(err).Msg("error shutting down oracle pool")
		}
	}()

	writer := report.NewWriter(os.Stdout, cfg.OutputCSVPath)
	defer writer.Close()

	driver := bfs.NewDriver(tables, pool, writer)
	if cfg.ChunkSize > 0 {
		driver.SetChunkSize(cfg.ChunkSize)
	}
	if cfg.ShardedDrain > 1 {
		driver.SetShardedDrain(cfg.ShardedDrain)
	}

	if err := driver.Run(ctx); err != nil {
		return err
	}

	writer.PrintSummary()
	return nil
}
