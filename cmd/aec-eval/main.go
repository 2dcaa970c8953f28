// Command aec-eval runs the echo canceller over a reference and a capture
// recording and optionally checks the result against the KPI thresholds.
//
// Usage:
//
//	aec-eval ref.wav rec.wav out.wav             # write out.wav and linear.wav
//	aec-eval ref.wav rec.wav out.wav voice.wav   # also check KPIs
//	aec-eval --delay 48 --config aec.yaml ref.wav rec.wav out.wav
//
// For the KPI check rec.wav must run at least one second longer than
// voice.wav, and voice.wav must be exactly the voice mixed into rec.wav at the
// same volume.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	harness "github.com/tphakala/go-aec-harness"
)

const (
	exitOK    = 0
	exitError = -1
)

const description = `Offline acoustic echo cancellation evaluation.

Writes the cleaned capture to out.wav and the linear filter output to
linear.wav. With voice.wav the KPIs are checked as well. Make sure:
  - rec.wav is at least 1 second longer than voice.wav
  - voice.wav is exactly the same audio used to create rec.wav (volume must be the same)`

// CLI defines the command-line interface.
type CLI struct {
	Reference string `arg:"" name:"ref.wav" help:"Reference (render) recording" type:"path"`
	Capture   string `arg:"" name:"rec.wav" help:"Capture recording: voice plus echo" type:"path"`
	Output    string `arg:"" name:"out.wav" help:"Cleaned output to write" type:"path"`
	Voice     string `arg:"" name:"voice.wav" help:"Clean voice mixed into rec.wav, enables the KPI check" type:"path" optional:""`

	Config  string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Linear  string `type:"path" help:"Linear filter output (default: linear.wav next to out.wav)"`
	Delay   int    `default:"-1" help:"Render-to-capture delay hint in band-rate samples, -1 keeps the config value"`
	Bypass  bool   `help:"Skip echo cancellation, only high-pass the capture"`
	Quiet   bool   `short:"q" help:"Do not draw the progress bar"`
	Verbose bool   `short:"v" help:"Verbose logging"`
}

// delayFromConfig is the --delay value that keeps the configured hint.
const delayFromConfig = -1

// Validate is called by kong after parsing.
func (c *CLI) Validate() error {
	if c.Delay < delayFromConfig {
		return fmt.Errorf("--delay must be -1 or a sample count >= 0, got %d", c.Delay)
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exited, exitCode := false, exitOK
	parser, err := kong.New(&cli,
		kong.Name("aec-eval"),
		kong.Description(description),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exited, exitCode = true, code }),
	)
	if err != nil {
		printError(stderr, err.Error())
		return exitError
	}

	_, err = parser.Parse(args)
	if exited {
		return exitCode
	}
	if err != nil {
		printError(stderr, err.Error())
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			parser.Stdout = stderr
			_ = parseErr.Context.PrintUsage(false)
		}
		return exitError
	}

	if err := evaluate(&cli, stdout, stderr); err != nil {
		printError(stderr, err.Error())
		return exitError
	}
	return exitOK
}

func loadConfig(cli *CLI) (*harness.Config, error) {
	cfg := harness.DefaultConfig()
	if cli.Config != "" {
		var err error
		if cfg, err = harness.LoadConfig(cli.Config); err != nil {
			return nil, err
		}
	}
	if cli.Delay != delayFromConfig {
		cfg.DelaySamples = cli.Delay
	}
	if cli.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func evaluate(cli *CLI, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	level, err := harness.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []harness.Option{harness.WithLogger(logger)}
	if !cli.Quiet {
		opts = append(opts, harness.WithProgress(stdout))
	}
	if cli.Bypass {
		opts = append(opts, harness.WithCanceller(harness.PassthroughCanceller))
	}
	h, err := harness.New(cfg, opts...)
	if err != nil {
		return err
	}

	files := harness.Files{
		Reference: cli.Reference,
		Capture:   cli.Capture,
		Output:    cli.Output,
		Linear:    cli.Linear,
		Voice:     cli.Voice,
	}

	p := newPrinter(stdout, stderr)
	p.files(files)
	for _, path := range []string{files.Reference, files.Capture, files.Voice} {
		if path == "" {
			continue
		}
		desc, err := harness.Inspect(path)
		if err != nil {
			return err
		}
		p.stream(path, desc)
	}
	p.rule()

	report, err := h.Process(files)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	p.summary(files, report)

	if files.Voice == "" {
		return nil
	}
	result, err := h.Evaluate(files)
	if err != nil {
		return fmt.Errorf("KPI check failed: %w", err)
	}
	p.kpis(result)
	return nil
}
