package cli

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cukereport/internal/config"
)

// resolveConfigPath normalizes a config path or finds it from CWD.
func resolveConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// loadConfig loads the config and returns it with the directory its
// relative paths resolve against.
func loadConfig(configPath string) (config.Config, string, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, config.RepoRootFromConfigPath(path), nil
}

// parseFlags parses args and reports the exit code to use when parsing
// stopped the command.
func parseFlags(cmd *Command, flags *flag.FlagSet, args []string, maxArgs int, stdout, stderr io.Writer) (int, bool) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printCommandUsage(cmd, stdout)
			return ExitOK, false
		}
		fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	if flags.NArg() > maxArgs {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args()[maxArgs:], " "))
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	return ExitOK, true
}

// duckDBPath returns the configured results database, falling back to the
// default location when the duckdb sink is off.
func duckDBPath(cfg config.Config, root string) string {
	path := cfg.DuckDBPath
	if path == "" {
		path = config.DefaultDuckDBPath
	}
	return config.ResolvePath(root, path)
}
