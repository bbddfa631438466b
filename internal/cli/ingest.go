package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"cukereport/internal/config"
	"cukereport/internal/resultsdb"
)

// runIngest builds the handler for the ingest command.
func runIngest(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file used for missing paths")
		dbPath := flags.String("db", "", "DuckDB file to load into (default: duckdb_path from config)")
		if code, ok := parseFlags(cmd, flags, args, 1, stdout, stderr); !ok {
			return code
		}

		dir := flags.Arg(0)
		db := strings.TrimSpace(*dbPath)
		if dir == "" || db == "" {
			cfg, root, err := loadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(stderr, "Ingest failed: %v\n", err)
				return ExitError
			}
			if dir == "" {
				dir = config.ResolvePath(root, cfg.ResultsDir)
			}
			if db == "" {
				db = duckDBPath(cfg, root)
			}
		}

		ctx := context.Background()
		store, err := resultsdb.Open(ctx, db)
		if err != nil {
			fmt.Fprintf(stderr, "Ingest failed: %v\n", err)
			return ExitError
		}
		defer store.Close()

		stats, err := store.Ingest(ctx, dir)
		if err != nil {
			fmt.Fprintf(stderr, "Ingest failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Ingested %d cases, %d containers, %d attachments into %s\n",
			stats.Cases, stats.Containers, stats.Attachments, db)
		return ExitOK
	}
}
