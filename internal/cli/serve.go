package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cukereport/internal/reportserver"
	"cukereport/internal/resultsdb"
)

// serveReport is a test seam for running the report server.
var serveReport = reportserver.Serve

// runServe builds the handler for the serve command.
func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file used when --db is not given")
		dbPath := fs.String("db", "", "DuckDB results file")
		addr := fs.String("addr", "127.0.0.1:5000", "Address to listen on")
		if code, ok := parseFlags(cmd, fs, args, 0, stdout, stderr); !ok {
			return code
		}
		if *addr == "" {
			fmt.Fprintln(stderr, "Missing --addr")
			return ExitUsage
		}

		db := strings.TrimSpace(*dbPath)
		if db == "" {
			cfg, root, err := loadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(stderr, "Serve failed: %v\n", err)
				return ExitError
			}
			db = duckDBPath(cfg, root)
		}
		if _, err := os.Stat(db); err != nil {
			fmt.Fprintf(stderr, "Database not found: %v\n", err)
			return ExitError
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		store, err := resultsdb.Open(ctx, db)
		if err != nil {
			fmt.Fprintf(stderr, "Serve failed: %v\n", err)
			return ExitError
		}
		defer store.Close()

		cfg := reportserver.Config{
			Addr:   *addr,
			Store:  store,
			Logger: slog.New(slog.NewTextHandler(stderr, nil)),
		}
		fmt.Fprintf(stdout, "Serving results at http://%s\n", cfg.Addr)
		if err := serveReport(ctx, cfg); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
