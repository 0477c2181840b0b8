package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/smileynet/vcardclean/internal/config"
	"github.com/smileynet/vcardclean/internal/pipeline"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for vcardclean.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Clean   CleanCmd         `cmd:"" default:"withargs" help:"Merge contacts by name, drop duplicates and write cleaned files."`
	Convert ConvertCmd       `cmd:"" help:"Rewrite a contact file in another format without merging."`
}

// CleanCmd runs the full cleaning pipeline over one contact file.
type CleanCmd struct {
	Input  string   `arg:"" help:"Contact file to clean (.vcf or .csv)."`
	Format []string `help:"Output format to write (vcf or csv). Repeatable." short:"f"`
	OutDir string   `help:"Directory for output files (default: next to the input)."`
	Suffix string   `help:"Suffix appended to output file names (default: ___CLEANED)."`
	Yes    bool     `help:"Write every format without asking." short:"y"`
	Plain  bool     `help:"Force plain text output even if stdout is a TTY."`
	Report bool     `help:"Write a markdown run report next to the outputs."`
}

// ConvertCmd rewrites a contact file in another format.
type ConvertCmd struct {
	Input  string `arg:"" help:"Contact file to convert (.vcf or .csv)."`
	To     string `help:"Target format." enum:"vcf,csv" required:""`
	OutDir string `help:"Directory for the output file (default: next to the input)."`
	Plain  bool   `help:"Force plain text output even if stdout is a TTY."`
	Report bool   `help:"Write a markdown run report next to the output."`
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(config.DefaultPaths()...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply copies flag overrides onto cfg.
func (c *CleanCmd) apply(cfg *config.Config) {
	if len(c.Format) > 0 {
		var formats []string
		seen := make(map[string]bool)
		for _, f := range config.SplitList(strings.Join(c.Format, ",")) {
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
		cfg.Output.Formats = formats
	}
	if c.OutDir != "" {
		cfg.Output.Dir = c.OutDir
	}
	if c.Suffix != "" {
		cfg.Output.Suffix = c.Suffix
	}
	if c.Plain {
		cfg.Display.Plain = true
	}
	if c.Report {
		cfg.Report.Enabled = true
	}
}

// Run executes the clean command.
func (c *CleanCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	if err := checkInput(c.Input); err != nil {
		return fmt.Errorf("clean: %w", err)
	}

	a, err := newApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	defer a.Close()
	return a.clean(ctx, c.Input, c.Yes)
}

// Run executes the convert command.
func (c *ConvertCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if c.OutDir != "" {
		cfg.Output.Dir = c.OutDir
	}
	cfg.Display.Plain = cfg.Display.Plain || c.Plain
	cfg.Report.Enabled = cfg.Report.Enabled || c.Report
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if err := checkInput(c.Input); err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	a, err := newApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	defer a.Close()
	return a.convert(ctx, c.Input, c.To)
}

// checkInput rejects missing inputs and directories before anything runs.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input: %s is a directory", path)
	}
	return nil
}

// Exit codes.
const (
	exitSuccess  = 0
	exitPipeline = 1
	exitSetup    = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *pipeline.StageError
	if errors.As(err, &se) || errors.Is(err, pipeline.ErrNothingToProcess) {
		return exitPipeline
	}
	return exitSetup
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("vcardclean"),
		kong.Description("Clean, merge and convert vCard and CSV contact lists."),
		kong.Vars{"version": version + " " + commit + " " + date},
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}
