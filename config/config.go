// Package config loads the command-line/environment configuration for
// the census CLI.
package config

import "github.com/namsral/flag"

// Config holds every setting cmd/c4solve needs to build and run a
// Driver. Fields are exported so tests can inspect them directly.
type Config struct {
	OracleCmd        string
	Threads          int
	Capacity         uint64
	CapacityFraction float64
	ChunkSize        uint64
	OutputCSVPath    string
	LogLevel         string
	ShardedDrain     int
}

// Load parses args (normally os.Args[1:]) into c, also honoring
// environment variables of the form C4SOLVE_<FLAG_NAME> and an optional
// config file via -config, the way namsral/flag extends the standard
// flag package.
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("c4solve", "C4SOLVE", flag.ContinueOnError)
	fs.String(flag.DefaultConfigFlagname, "", "path to an optional config file")
	fs.StringVar(&c.OracleCmd, "oracle-cmd", "", "command line to start the WDL oracle subprocess, shell-quoted")
	fs.IntVar(&c.Threads, "threads", 4, "number of worker threads (and oracle subprocess instances)")
	fs.Uint64Var(&c.Capacity, "capacity", 0, "explicit frontier table capacity in slots; 0 derives it from -capacity-fraction")
	fs.Float64Var(&c.CapacityFraction, "capacity-fraction", 0.35, "fraction of system memory to size the frontier tables from, when -capacity is 0")
	fs.Uint64Var(&c.ChunkSize, "chunk-size", 1<<20, "slots per scan chunk, used to amortize scheduling overhead")
	fs.StringVar(&c.OutputCSVPath, "output", "output.csv", "path to also write the CSV report to; empty disables the file output")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug, info, or disabled")
	fs.IntVar(&c.ShardedDrain, "sharded-drain", 0, "number of drain shards; 0 or 1 uses the single critical-section drain")
	return fs.Parse(args)
}
