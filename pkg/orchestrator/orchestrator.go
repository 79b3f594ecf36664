// Package orchestrator coordinates the stages of an inspection.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/duration"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
)

// DefaultThumbEvery is the thumbnail interval used when the frame count cannot be estimated.
const DefaultThumbEvery = 30

// Config contains all configuration for one inspection.
type Config struct {
	// Input
	Path string

	// Codec identification
	Target codecid.Target

	// Duration estimation
	Precise   bool
	Windows   []float64
	ScanLimit int

	// Decoding
	Frames    bool
	SaveEvery int // Save every Nth frame to the sink (0 = none)

	// Contact sheet, implies Frames
	ContactSheet bool
	SheetCells   int
	SheetColumns int
	ThumbWidth   int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Target:       codecid.NotchLC,
		Precise:      true,
		Windows:      duration.DefaultWindows,
		ScanLimit:    duration.DefaultScanLimit,
		SheetCells:   12,
		SheetColumns: 4,
		ThumbWidth:   160,
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	probeStage     pipeline.Stage[pipeline.ProbeInput, pipeline.ProbeResult]
	estimateStage  pipeline.Stage[pipeline.EstimateInput, pipeline.EstimateResult]
	identifyStage  pipeline.Stage[pipeline.IdentifyInput, pipeline.IdentifyResult]
	framesStage    pipeline.Stage[pipeline.FramesInput, pipeline.FramesResult]
	layoutStage    pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult]
	compositeStage pipeline.Stage[pipeline.SheetInput, pipeline.SheetResult]
	sink           ports.FrameSink
	logger         ports.Logger
}

// New creates a new Orchestrator.
func New(
	probeStage pipeline.Stage[pipeline.ProbeInput, pipeline.ProbeResult],
	estimateStage pipeline.Stage[pipeline.EstimateInput, pipeline.EstimateResult],
	identifyStage pipeline.Stage[pipeline.IdentifyInput, pipeline.IdentifyResult],
	framesStage pipeline.Stage[pipeline.FramesInput, pipeline.FramesResult],
	layoutStage pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult],
	compositeStage pipeline.Stage[pipeline.SheetInput, pipeline.SheetResult],
	sink ports.FrameSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		probeStage:     probeStage,
		estimateStage:  estimateStage,
		identifyStage:  identifyStage,
		framesStage:    framesStage,
		layoutStage:    layoutStage,
		compositeStage: compositeStage,
		sink:           sink,
		logger:         logger,
	}
}

// Run inspects config.Path. A probe failure stops the run; estimates and the
// codec verdict never fail on their own.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	start := time.Now()
	o.logger.Info("Inspecting %s", config.Path)

	// 1. Probe
	probe, err := o.probeStage.Execute(ctx, pipeline.ProbeInput{Path: config.Path})
	if err != nil {
		o.logger.Error("Failed to probe %s: %s", config.Path, err)
		return RunResult{}, fmt.Errorf("probe stage: %w", err)
	}

	// 2. Estimate
	estimates, err := o.estimateStage.Execute(ctx, pipeline.EstimateInput{
		Path:      config.Path,
		Windows:   config.Windows,
		ScanLimit: config.ScanLimit,
		Precise:   config.Precise,
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("estimate stage: %w", err)
	}
	if d, ok := estimates.Best().Get(); ok {
		o.logger.Info("Estimated duration: %s", pipeline.FormatClock(d))
	} else {
		o.logger.Warn("Duration of %s is unknown", config.Path)
	}

	// 3. Identify
	codec, err := o.identifyStage.Execute(ctx, pipeline.IdentifyInput{Path: config.Path, Target: config.Target})
	if err != nil {
		return RunResult{}, fmt.Errorf("identify stage: %w", err)
	}

	result := RunResult{
		Path:      config.Path,
		Probe:     probe,
		Estimates: estimates,
		Codec:     codec,
	}

	if !config.Frames && !config.ContactSheet {
		result.Elapsed = time.Since(start)
		return result, nil
	}

	// 4. Decode
	framesInput := pipeline.FramesInput{
		Path:       config.Path,
		SaveEvery:  config.SaveEvery,
		ThumbWidth: config.ThumbWidth,
	}
	if config.ContactSheet {
		framesInput.ThumbEvery = ThumbInterval(estimates.FrameCount(), config.SheetCells)
	}
	o.logger.Info("Decoding %s", config.Path)
	frames, err := o.framesStage.Execute(ctx, framesInput)
	if err != nil {
		o.logger.Error("Failed to decode %s: %s", config.Path, err)
		return RunResult{}, fmt.Errorf("frames stage: %w", err)
	}
	o.logger.Info("Decoded %d frames", frames.Count)
	result.Frames = &frames

	// 5. Contact sheet
	if config.ContactSheet && len(frames.Thumbnails) > 0 {
		if err := o.contactSheet(ctx, config, &result); err != nil {
			o.logger.Error("Failed to render contact sheet: %s", err)
			return RunResult{}, err
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (o *Orchestrator) contactSheet(ctx context.Context, config Config, result *RunResult) error {
	thumbs := result.Frames.Thumbnails
	if config.SheetCells > 0 && len(thumbs) > config.SheetCells {
		thumbs = thumbs[:config.SheetCells]
	}

	layoutInput := pipeline.DefaultLayoutInput()
	layoutInput.Count = len(thumbs)
	if config.SheetColumns > 0 {
		layoutInput.Columns = config.SheetColumns
	}
	b := thumbs[0].Image.Bounds()
	layoutInput.CellWidth = b.Dx()
	layoutInput.CellHeight = b.Dy()

	layout, err := o.layoutStage.Execute(ctx, layoutInput)
	if err != nil {
		return fmt.Errorf("layout stage: %w", err)
	}

	sheet, err := o.compositeStage.Execute(ctx, pipeline.SheetInput{
		Title:      sheetTitle(result),
		Thumbnails: thumbs,
		Layout:     layout,
		Theme:      pipeline.DefaultSheetTheme(),
	})
	if err != nil {
		return fmt.Errorf("composite stage: %w", err)
	}

	if o.sink.Enabled() {
		if err := o.sink.SaveContactSheet(sheet.Image); err != nil {
			return fmt.Errorf("save contact sheet: %w", err)
		}
	}
	result.ContactSheet = true
	o.logger.Info("Contact sheet rendered: %dx%d, %d thumbnails", layout.Sheet.Width, layout.Sheet.Height, len(thumbs))
	return nil
}

// ThumbInterval spreads cells thumbnails over an estimated frame count.
func ThumbInterval(frameCount mo.Option[int], cells int) int {
	n, ok := frameCount.Get()
	if !ok || n <= 0 || cells <= 0 {
		return DefaultThumbEvery
	}
	return max((n+cells-1)/cells, 1)
}

func sheetTitle(r *RunResult) string {
	title := filepath.Base(r.Path)
	if d, ok := r.Estimates.Best().Get(); ok {
		title += "  " + pipeline.FormatClock(d)
	}
	if r.Probe.HasVideo {
		title += fmt.Sprintf("  %s %dx%d", r.Probe.Video.CodecName, r.Probe.Video.Width, r.Probe.Video.Height)
	}
	if fps, ok := r.Estimates.AverageFPS.Get(); ok {
		title += fmt.Sprintf("  %.3g fps", fps)
	}
	return title
}

// RunResult contains the results of an inspection for summary generation.
type RunResult struct {
	Path      string
	Probe     pipeline.ProbeResult
	Estimates pipeline.EstimateResult
	Codec     pipeline.IdentifyResult

	// Frames is nil when no decode was requested.
	Frames       *pipeline.FramesResult
	ContactSheet bool

	Elapsed time.Duration
}
