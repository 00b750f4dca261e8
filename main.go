package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ansel1/tallure/allure"
	"github.com/ansel1/tallure/config"
	"github.com/ansel1/tallure/engine"
	"github.com/ansel1/tallure/output"
	"github.com/ansel1/tallure/output/format"
	"github.com/ansel1/tallure/reporter"
	"github.com/ansel1/tallure/results"
	"github.com/ansel1/tallure/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes.
const (
	exitTestsFailed = 1
	exitWriteFailed = 2
	exitInterrupted = 130
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "tallure",
		Usage:     "Write Allure results for a go test -json stream",
		UsageText: "go test -json ./... | tallure [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "f",
				Usage: "read from file instead of stdin",
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Aliases: []string{"o"},
				Usage:   "directory to write results to (overrides config)",
				Sources: cli.EnvVars("TALLURE_RESULTS_DIR", "ALLURE_RESULTS_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default " + config.DefaultFileName + ")",
				Sources: cli.EnvVars("TALLURE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "outfile",
				Usage: "save all input to the specified file",
			},
			&cli.StringFlag{
				Name:  "jsonfile",
				Usage: "save JSON events to the specified file",
			},
			&cli.BoolFlag{
				Name:    "notty",
				Usage:   "don't use the TUI, print plain text to stdout",
				Sources: cli.EnvVars("TALLURE_NOTTY"),
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: "remove previous results from the results dir first",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("TALLURE_DEBUG"),
			},
		},
		Action: runReport,
	}
}

// newLogger logs to stderr; stdout belongs to the display.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("results-dir") {
		cfg.ResultsDir = cmd.String("results-dir")
	}
	if cmd.Bool("clean") {
		cfg.CleanResultsDir = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Setup input source (file or stdin)
	var input io.Reader = cmd.Root().Reader
	if input == nil {
		input = os.Stdin
	}
	if name := cmd.String("f"); name != "" {
		f, err := os.Open(name)
		if err != nil {
			return errors.Wrap(err, "opening input file")
		}
		defer f.Close()
		input = f
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if name := cmd.String("outfile"); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		engineOpts = append(engineOpts, engine.WithRawOutput(f))
	}
	if name := cmd.String("jsonfile"); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "creating JSON file")
		}
		defer f.Close()
		engineOpts = append(engineOpts, engine.WithJSONOutput(f))
	}

	writer := allure.NewFileWriter(cfg.ResultsDir, allure.WithWriterLogger(logger))
	if cfg.CleanResultsDir {
		if err := writer.Clean(); err != nil {
			return cli.Exit(err.Error(), exitWriteFailed)
		}
	}
	rt := allure.NewRuntime(writer, allure.WithRuntimeLogger(logger))
	coordinator := reporter.NewCoordinator(rt, allure.NewSystemIdentity(), cfg.ReporterOptions(),
		reporter.WithLogger(logger))

	collectorOpts := []results.Option{
		results.WithLogger(logger),
		results.WithRestoreSubtestSpaces(cfg.RestoreSubtestSpaces),
	}
	if cfg.RuntimeName != "" {
		collectorOpts = append(collectorOpts, results.WithBrowserName(cfg.RuntimeName))
	}
	collector := results.NewCollector(collectorOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := collector.Stream(engine.NewEngine(engineOpts...).Stream(ctx, input))

	// Skip the TUI when reading a file or when stdout is not a terminal
	skipTUI := cmd.Bool("notty") || cmd.String("f") != "" || !isTerminal(out)

	var (
		reportErr error
		show      func(*format.Summary) error
	)
	if skipTUI {
		simple := output.NewSimpleOutput(out)
		reportErr = coordinator.Consume(events, simple.Observe)
		show = simple.WriteSummary
	} else {
		m := tui.NewModel(cfg.ResultsDir)
		p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))

		done := make(chan error, 1)
		go func() {
			err := coordinator.Consume(events, func(evt results.Event) {
				// print raw lines above the TUI
				if evt.Type == results.EventRawOutput {
					p.Println(string(evt.RawLine))
					return
				}
				p.Send(tui.ResultsEventMsg(evt))
			})
			done <- err
			p.Send(tui.DoneMsg{Err: err})
		}()

		finalModel, err := p.Run()
		if err != nil {
			return errors.Wrap(err, "running TUI")
		}
		if model, ok := finalModel.(*tui.Model); ok && model.Interrupted {
			// the reader may be blocked on stdin, don't wait for it
			logger.Warn("interrupted, open scopes were not written")
			return cli.Exit("", exitInterrupted)
		}
		reportErr = <-done
		show = func(summary *format.Summary) error {
			formatter := format.NewSummaryFormatter(m.TerminalWidth)
			_, err := fmt.Fprintf(out, "\n%s\n", formatter.Format(summary))
			return err
		}
	}

	if reportErr == nil {
		reportErr = writeRunInfo(writer, cfg)
	}

	stats := coordinator.Stats()
	var (
		summary    *format.Summary
		failedPkgs bool
	)
	collector.WithRun(func(run *results.Run) {
		summary = format.ComputeSummary(run, format.Report{
			ResultsDir: writer.Dir(),
			Records:    stats.RecordsWritten,
			Containers: stats.ScopesWritten,
		})
		for _, pkg := range run.Packages {
			if pkg.Status == results.StatusFailed {
				failedPkgs = true
			}
		}
	})
	// a closed stdout does not change the outcome, the results are on disk
	if err := show(summary); err != nil {
		logger.Warn("display output failed", zap.Error(err))
	}

	switch {
	case reportErr != nil:
		return cli.Exit(errors.Wrap(reportErr, "writing allure results").Error(), exitWriteFailed)
	case stats.Failed > 0 || failedPkgs:
		return cli.Exit("", exitTestsFailed)
	}
	return nil
}

// writeRunInfo writes the run level files the config asks for.
func writeRunInfo(w allure.Writer, cfg *config.Config) error {
	if len(cfg.EnvironmentInfo) > 0 {
		if err := w.WriteEnvironmentInfo(cfg.EnvironmentInfo); err != nil {
			return err
		}
	}
	if len(cfg.Categories) > 0 {
		if err := w.WriteCategories(cfg.Categories); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
