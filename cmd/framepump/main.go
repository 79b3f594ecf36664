// Package main provides the CLI entry point for framepump.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/framepump/pkg/adapters/logger"
	"github.com/user/framepump/pkg/adapters/osfilesystem"
	"github.com/user/framepump/pkg/config"
	"github.com/user/framepump/pkg/ports"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Probe    ProbeCmd    `cmd:"" help:"Inspect video files and print a report."`
	Duration DurationCmd `cmd:"" help:"Estimate the duration of a video file."`
	FPS      FPSCmd      `cmd:"" name:"fps" help:"Print the average frame rate of a video file."`
	Codec    CodecCmd    `cmd:"" help:"Check whether a video file uses a given codec."`
	Frames   FramesCmd   `cmd:"" help:"Decode every frame of a video file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Globals are flags shared by every subcommand. They override the config file.
type Globals struct {
	Config    string `short:"c" type:"path" help:"YAML config file."`
	Engine    string `short:"e" help:"Decode engine (ffmpeg or mp4)."`
	LogLevel  string `short:"l" help:"Log level (debug, info, warn, error)."`
	LogFormat string `help:"Log format (console or json)."`
	Workers   int    `short:"j" help:"Number of files inspected in parallel."`
	Quiet     bool   `short:"Q" help:"Suppress all log output."`
}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("framepump"),
		kong.Description("Inspect video files: duration, frame rate, codec and decoded frames."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// settings loads the config file, if any, and applies flag overrides.
func (g *Globals) settings() (config.Config, error) {
	cfg := config.Defaults()
	if g.Config != "" {
		loaded, err := config.LoadFromFile(osfilesystem.New(), g.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if g.Engine != "" {
		cfg.Engine = g.Engine
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.LogFormat = g.LogFormat
	}
	if g.Workers > 0 {
		cfg.Workers = g.Workers
	}
	if g.Quiet {
		cfg.LogLevel = "quiet"
	}
	return cfg, cfg.Validate()
}

// newLogger creates the logger selected by cfg.
func newLogger(cfg config.Config) ports.Logger {
	level := cfg.Level()
	switch {
	case level == ports.LevelQuiet:
		return logger.NewNoop()
	case cfg.LogFormat == "json":
		return logger.NewZap(level, "json", os.Stderr)
	default:
		return logger.NewConsole(level)
	}
}

// syncLogger flushes buffered log entries of loggers that buffer.
func syncLogger(log ports.Logger) {
	if s, ok := log.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
