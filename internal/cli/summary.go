package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"cukereport/internal/config"
	"cukereport/internal/summary"
	"cukereport/internal/ui/live"
)

// runSummary builds the handler for the summary command.
func runSummary(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file used when no results dir is given")
		failures := flags.Bool("failures", false, "Only list failed and broken cases")
		noColor := flags.Bool("no-color", false, "Disable colored output")
		htmlPath := flags.String("html", "", "Also write an HTML summary page to this file")
		if code, ok := parseFlags(cmd, flags, args, 1, stdout, stderr); !ok {
			return code
		}

		dir := flags.Arg(0)
		if dir == "" {
			cfg, root, err := loadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(stderr, "Summary failed: %v\n", err)
				return ExitError
			}
			dir = config.ResolvePath(root, cfg.ResultsDir)
		}

		report, err := summary.Load(dir)
		if err != nil {
			fmt.Fprintf(stderr, "Summary failed: %v\n", err)
			return ExitError
		}
		opts := summary.TextOptions{
			NoColor:      *noColor || !live.IsTerminal(stdout),
			FailuresOnly: *failures,
		}
		if err := summary.RenderText(stdout, report, opts); err != nil {
			fmt.Fprintf(stderr, "Summary failed: %v\n", err)
			return ExitError
		}

		if *htmlPath != "" {
			if err := writeSummaryPage(*htmlPath, report); err != nil {
				fmt.Fprintf(stderr, "Summary failed: %v\n", err)
				return ExitError
			}
			fmt.Fprintf(stdout, "Wrote %s\n", *htmlPath)
		}
		return ExitOK
	}
}

func writeSummaryPage(path string, report summary.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html summary: %w", err)
	}
	if err := summary.Page(report).Render(context.Background(), file); err != nil {
		_ = file.Close()
		return fmt.Errorf("render html summary: %w", err)
	}
	return file.Close()
}
