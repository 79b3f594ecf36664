package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/user/framepump/pkg/adapters/filesink"
	"github.com/user/framepump/pkg/adapters/ggrenderer"
	"github.com/user/framepump/pkg/adapters/nullsink"
	"github.com/user/framepump/pkg/adapters/osfilesystem"
	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/config"
	"github.com/user/framepump/pkg/duration"
	"github.com/user/framepump/pkg/orchestrator"
	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/summarizer"
)

// ProbeCmd inspects one or more files.
type ProbeCmd struct {
	Paths  []string `arg:"" help:"Video files to inspect."`
	Format string   `short:"f" help:"Report format (text, markdown or json)."`
	Output string   `short:"o" help:"Write the report to a file instead of stdout."`
}

// DurationCmd prints one duration estimate.
type DurationCmd struct {
	Path string `arg:"" help:"Video file."`
	Mode string `short:"m" default:"precise" enum:"fast,frame,format,precise" help:"Estimator (fast, frame, format or precise)."`
}

// FPSCmd prints the average frame rate.
type FPSCmd struct {
	Path string `arg:"" help:"Video file."`
}

// CodecCmd checks a file against a codec name and tag.
type CodecCmd struct {
	Path string `arg:"" help:"Video file."`
	Name string `help:"Codec name to match (default: notchlc)."`
	Tag  string `help:"Four character codec tag to match (default: nclc)."`
}

// FramesCmd decodes a whole file.
type FramesCmd struct {
	Path         string `arg:"" help:"Video file."`
	Out          string `short:"o" type:"path" help:"Directory for saved frames, contact sheet and report."`
	Every        int    `short:"n" help:"Save every Nth frame as PNG (requires --out)."`
	ContactSheet bool   `short:"s" help:"Render a contact sheet of evenly spaced frames (requires --out)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// env is what every command needs after flags are resolved.
type env struct {
	cfg config.Config
	log ports.Logger
	eng engine
	out io.Writer
	fs  afero.Fs
}

func (g *Globals) env() (*env, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	fs := afero.NewOsFs()
	eng, err := newEngine(cfg.Engine, fs, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, eng: eng, out: os.Stdout, fs: fs}, nil
}

func (e *env) estimator() *duration.Estimator {
	return duration.New(e.eng.deps.Demuxer,
		duration.WithLogger(e.log),
		duration.WithWindows(e.cfg.Precise.Windows),
		duration.WithScanLimit(e.cfg.Precise.ScanLimit),
	)
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run(g *Globals) error {
	e, err := g.env()
	if err != nil {
		return err
	}
	defer syncLogger(e.log)

	ctx, cancel := signalContext(e.log)
	defer cancel()

	return cmd.run(ctx, e)
}

func (cmd *ProbeCmd) run(ctx context.Context, e *env) error {
	format := cmd.Format
	if format == "" {
		format = e.cfg.Report.Format
	}
	formatter, err := summarizer.ForName(format)
	if err != nil {
		return err
	}

	summary, err := inspectAll(ctx, e, lo.Uniq(cmd.Paths))
	if err != nil {
		return err
	}

	if cmd.Output != "" {
		fs := osfilesystem.NewWithFs(e.fs)
		if err := summarizer.NewWriter(formatter, fs).Write(cmd.Output, summary); err != nil {
			return err
		}
		e.log.Info("Report saved to %s", cmd.Output)
	} else {
		fmt.Fprint(e.out, formatter.Format(summary))
	}

	if n := summary.Failed(); n > 0 {
		return errors.New(l10n.F("%d of %d files could not be inspected", n, len(summary.Files)))
	}
	return nil
}

// inspectAll runs the metadata stages over paths, at most cfg.Workers at a
// time. Reports keep the order of paths.
func inspectAll(ctx context.Context, e *env, paths []string) (*summarizer.Summary, error) {
	orch := e.eng.newOrchestrator(e.cfg, nullsink.New(), e.log)

	runs := make([]orchestrator.RunResult, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(max(e.cfg.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runs[i], errs[i] = orch.Run(ctx, e.cfg.ToOrchestratorConfig(path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := summarizer.NewBuilder()
	for i, path := range paths {
		if errs[i] != nil {
			b.AddError(path, errs[i])
			continue
		}
		b.AddRun(runs[i])
	}
	return b.Build(), nil
}

// Run executes the duration command.
func (cmd *DurationCmd) Run(g *Globals) error {
	e, err := g.env()
	if err != nil {
		return err
	}
	defer syncLogger(e.log)

	ctx, cancel := signalContext(e.log)
	defer cancel()

	return cmd.run(ctx, e)
}

func (cmd *DurationCmd) run(ctx context.Context, e *env) error {
	est := e.estimator()

	var d mo.Option[float64]
	switch cmd.Mode {
	case "fast":
		d = est.Fast(cmd.Path)
	case "frame":
		d = est.FrameAccurate(cmd.Path)
	case "format":
		d = est.FormatOnly(cmd.Path)
	default:
		d = est.Precise(ctx, cmd.Path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	v, ok := d.Get()
	if !ok {
		return errors.New(l10n.F("Duration of %s is unknown", cmd.Path))
	}
	fmt.Fprintf(e.out, "%.3f\n", v)
	return nil
}

// Run executes the fps command.
func (cmd *FPSCmd) Run(g *Globals) error {
	e, err := g.env()
	if err != nil {
		return err
	}
	defer syncLogger(e.log)
	return cmd.run(e)
}

func (cmd *FPSCmd) run(e *env) error {
	fps, ok := e.estimator().AverageFPS(cmd.Path).Get()
	if !ok {
		return errors.New(l10n.F("Frame rate of %s is unknown", cmd.Path))
	}
	fmt.Fprintf(e.out, "%.3f\n", fps)
	return nil
}

// Run executes the codec command.
func (cmd *CodecCmd) Run(g *Globals) error {
	e, err := g.env()
	if err != nil {
		return err
	}
	defer syncLogger(e.log)
	return cmd.run(e)
}

func (cmd *CodecCmd) run(e *env) error {
	target := e.cfg.Target()
	if cmd.Name != "" || cmd.Tag != "" {
		target = codecid.Target{Name: cmd.Name, AltTag: cmd.Tag}
	}
	if len(target.AltTag) > 4 {
		return fmt.Errorf("codec tag %q is longer than 4 characters", target.AltTag)
	}

	verdict := codecid.New(e.eng.deps.Demuxer, e.log).Identify(cmd.Path, target)
	fmt.Fprintln(e.out, verdict)
	if verdict == codecid.Indeterminate {
		return errors.New(l10n.F("Could not identify the codec of %s", cmd.Path))
	}
	return nil
}

// Run executes the frames command.
func (cmd *FramesCmd) Run(g *Globals) error {
	e, err := g.env()
	if err != nil {
		return err
	}
	defer syncLogger(e.log)

	ctx, cancel := signalContext(e.log)
	defer cancel()

	return cmd.run(ctx, e)
}

func (cmd *FramesCmd) run(ctx context.Context, e *env) error {
	if cmd.Out == "" && (cmd.Every > 0 || cmd.ContactSheet) {
		return errors.New(l10n.T("--every and --contact-sheet require --out"))
	}

	fs := osfilesystem.NewWithFs(e.fs)
	var sink ports.FrameSink = nullsink.New()
	if cmd.Out != "" {
		if err := fs.MkdirAll(cmd.Out); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		sink = filesink.New(cmd.Out, fs, ggrenderer.New())
	}

	oc := e.cfg.ToOrchestratorConfig(cmd.Path)
	oc.Frames = true
	oc.SaveEvery = cmd.Every
	oc.ContactSheet = cmd.ContactSheet

	run, err := e.eng.newOrchestrator(e.cfg, sink, e.log).Run(ctx, oc)
	if err != nil {
		return err
	}

	summary := summarizer.NewBuilder().AddRun(run).Build()
	fmt.Fprint(e.out, summarizer.NewTextFormatter().Format(summary))

	if sink.Enabled() {
		report := summarizer.NewJSONFormatter().Format(summary)
		if err := sink.SaveReport("report.json", []byte(report)); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run(g *Globals) error {
	fmt.Println(l10n.F("framepump version %s", version))
	return nil
}
