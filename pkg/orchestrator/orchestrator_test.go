package orchestrator

import (
	"context"
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/goconverter"
	"github.com/user/framepump/pkg/adapters/mjpegdecoder"
	"github.com/user/framepump/pkg/adapters/mp4demux"
	"github.com/user/framepump/pkg/adapters/mp4demux/mp4test"
	"github.com/user/framepump/pkg/adapters/pixbuf"
	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/mocks"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/pump"
	"github.com/user/framepump/pkg/stages/composite"
	"github.com/user/framepump/pkg/stages/estimate"
	"github.com/user/framepump/pkg/stages/frames"
	"github.com/user/framepump/pkg/stages/identify"
	"github.com/user/framepump/pkg/stages/layout"
	"github.com/user/framepump/pkg/stages/probe"
)

// mockStage is a mock for any stage. It records its inputs.
type mockStage[In, Out any] struct {
	result Out
	err    error
	inputs []In
}

func (m *mockStage[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		var zero Out
		return zero, m.err
	}
	return m.result, nil
}

type mockStages struct {
	probe     *mockStage[pipeline.ProbeInput, pipeline.ProbeResult]
	estimate  *mockStage[pipeline.EstimateInput, pipeline.EstimateResult]
	identify  *mockStage[pipeline.IdentifyInput, pipeline.IdentifyResult]
	frames    *mockStage[pipeline.FramesInput, pipeline.FramesResult]
	layout    *mockStage[pipeline.LayoutInput, pipeline.LayoutResult]
	composite *mockStage[pipeline.SheetInput, pipeline.SheetResult]
	sink      *mocks.FrameSink
	log       *mocks.Logger
}

func newMockStages() *mockStages {
	thumbs := make([]pipeline.Thumbnail, 20)
	for i := range thumbs {
		thumbs[i] = pipeline.Thumbnail{Index: i * 25, PTS: mo.Some(float64(i)), Image: image.NewRGBA(image.Rect(0, 0, 160, 120))}
	}
	return &mockStages{
		probe: &mockStage[pipeline.ProbeInput, pipeline.ProbeResult]{result: pipeline.ProbeResult{
			Path:     "clip.mov",
			Duration: mo.Some(20.0),
			Video:    ports.StreamInfo{CodecName: "mjpeg", Width: 640, Height: 480},
			HasVideo: true,
		}},
		estimate: &mockStage[pipeline.EstimateInput, pipeline.EstimateResult]{result: pipeline.EstimateResult{
			Fast:          mo.Some(20.0),
			FrameAccurate: mo.Some(20.0),
			FormatOnly:    mo.Some(20.0),
			Precise:       mo.Some(19.96),
			AverageFPS:    mo.Some(25.0),
		}},
		identify: &mockStage[pipeline.IdentifyInput, pipeline.IdentifyResult]{result: pipeline.IdentifyResult{
			Target: codecid.NotchLC, Verdict: codecid.NoMatch,
		}},
		frames: &mockStage[pipeline.FramesInput, pipeline.FramesResult]{result: pipeline.FramesResult{
			Count: 500, Width: 640, Height: 480, Thumbnails: thumbs,
		}},
		layout:    &mockStage[pipeline.LayoutInput, pipeline.LayoutResult]{result: pipeline.LayoutResult{Sheet: pipeline.Dimension{Width: 700, Height: 500}}},
		composite: &mockStage[pipeline.SheetInput, pipeline.SheetResult]{result: pipeline.SheetResult{Image: image.NewRGBA(image.Rect(0, 0, 700, 500))}},
		sink:      mocks.NewFrameSink(true),
		log:       mocks.NewLogger(),
	}
}

func (m *mockStages) orchestrator() *Orchestrator {
	return New(m.probe, m.estimate, m.identify, m.frames, m.layout, m.composite, m.sink, m.log)
}

func TestOrchestrator_Run_MetadataOnly(t *testing.T) {
	m := newMockStages()
	config := DefaultConfig()
	config.Path = "clip.mov"

	result, err := m.orchestrator().Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Path != "clip.mov" || !result.Probe.HasVideo {
		t.Errorf("unexpected probe result: %+v", result.Probe)
	}
	if v, _ := result.Estimates.Precise.Get(); v != 19.96 {
		t.Errorf("expected precise estimate 19.96, got %v", result.Estimates.Precise)
	}
	if result.Codec.Verdict != codecid.NoMatch {
		t.Errorf("expected NoMatch, got %v", result.Codec.Verdict)
	}
	if result.Frames != nil {
		t.Error("expected no decode")
	}
	if len(m.frames.inputs) != 0 {
		t.Errorf("frames stage should not run, got %d calls", len(m.frames.inputs))
	}

	in := m.estimate.inputs[0]
	if !in.Precise || in.ScanLimit != 10000 || len(in.Windows) != 3 {
		t.Errorf("unexpected estimate input: %+v", in)
	}
	if m.identify.inputs[0].Target != codecid.NotchLC {
		t.Errorf("unexpected identify target: %+v", m.identify.inputs[0].Target)
	}
}

func TestOrchestrator_Run_ContactSheet(t *testing.T) {
	m := newMockStages()
	config := DefaultConfig()
	config.Path = "clip.mov"
	config.ContactSheet = true
	config.SaveEvery = 50

	result, err := m.orchestrator().Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 20s at 25 fps over 12 cells.
	in := m.frames.inputs[0]
	if in.ThumbEvery != 42 {
		t.Errorf("expected thumbnail interval 42, got %d", in.ThumbEvery)
	}
	if in.SaveEvery != 50 || in.ThumbWidth != 160 {
		t.Errorf("unexpected frames input: %+v", in)
	}

	if result.Frames == nil || result.Frames.Count != 500 {
		t.Fatalf("expected 500 decoded frames, got %+v", result.Frames)
	}

	layoutIn := m.layout.inputs[0]
	if layoutIn.Count != 12 || layoutIn.Columns != 4 || layoutIn.CellWidth != 160 || layoutIn.CellHeight != 120 {
		t.Errorf("unexpected layout input: %+v", layoutIn)
	}

	sheetIn := m.composite.inputs[0]
	if len(sheetIn.Thumbnails) != 12 {
		t.Errorf("expected 12 thumbnails, got %d", len(sheetIn.Thumbnails))
	}
	if !strings.HasPrefix(sheetIn.Title, "clip.mov  00:19.960  mjpeg 640x480") {
		t.Errorf("unexpected title %q", sheetIn.Title)
	}

	if !result.ContactSheet || m.sink.ContactSheet == nil {
		t.Error("expected the contact sheet to be saved")
	}
}

func TestOrchestrator_Run_StageErrors(t *testing.T) {
	stageErr := errors.New("boom")

	tests := []struct {
		name   string
		setup  func(m *mockStages)
		prefix string
	}{
		{"probe", func(m *mockStages) { m.probe.err = stageErr }, "probe stage"},
		{"estimate", func(m *mockStages) { m.estimate.err = stageErr }, "estimate stage"},
		{"identify", func(m *mockStages) { m.identify.err = stageErr }, "identify stage"},
		{"frames", func(m *mockStages) { m.frames.err = stageErr }, "frames stage"},
		{"layout", func(m *mockStages) { m.layout.err = stageErr }, "layout stage"},
		{"composite", func(m *mockStages) { m.composite.err = stageErr }, "composite stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockStages()
			tt.setup(m)
			config := DefaultConfig()
			config.Path = "clip.mov"
			config.ContactSheet = true

			_, err := m.orchestrator().Run(context.Background(), config)
			if !errors.Is(err, stageErr) {
				t.Fatalf("expected stage error, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.prefix) {
				t.Errorf("expected %q prefix, got %q", tt.prefix, err.Error())
			}
		})
	}
}

func TestOrchestrator_Run_UnknownDurationWarns(t *testing.T) {
	m := newMockStages()
	m.estimate.result = pipeline.EstimateResult{}
	config := DefaultConfig()
	config.Path = "clip.mov"

	if _, err := m.orchestrator().Run(context.Background(), config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.log.Count(ports.LevelWarn) != 1 {
		t.Errorf("expected 1 warning, got %d", m.log.Count(ports.LevelWarn))
	}
}

func TestThumbInterval(t *testing.T) {
	tests := []struct {
		count mo.Option[int]
		cells int
		want  int
	}{
		{mo.Some(300), 12, 25},
		{mo.Some(301), 12, 26},
		{mo.Some(5), 12, 1},
		{mo.None[int](), 12, DefaultThumbEvery},
		{mo.Some(300), 0, DefaultThumbEvery},
	}
	for _, tt := range tests {
		if got := ThumbInterval(tt.count, tt.cells); got != tt.want {
			t.Errorf("ThumbInterval(%v, %d) = %d, want %d", tt.count, tt.cells, got, tt.want)
		}
	}
}

func TestOrchestrator_Run_Fixture(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := mp4test.Write(fs, "clip.mp4", mp4test.TenSeconds); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	demuxer := mp4demux.NewWithFs(fs)
	log := mocks.NewLogger()
	renderer := &mocks.Renderer{}
	sink := mocks.NewFrameSink(true)

	deps := pump.Deps{
		Demuxer:    demuxer,
		Decoders:   mjpegdecoder.NewFactory(),
		Converters: goconverter.NewFactory(),
		Buffers:    pixbuf.NewAllocator(),
	}
	o := New(
		probe.NewStage(demuxer, log),
		estimate.NewStage(demuxer, log),
		identify.NewStage(demuxer, log),
		frames.NewStage(deps, renderer, sink, log),
		layout.NewStage(),
		composite.NewStage(renderer, log, 2),
		sink,
		log,
	)

	config := DefaultConfig()
	config.Path = "clip.mp4"
	config.ContactSheet = true
	config.ThumbWidth = 32

	result, err := o.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d, ok := result.Estimates.FrameAccurate.Get(); !ok || math.Abs(d-10) > 1e-9 {
		t.Errorf("expected 10s, got %v", result.Estimates.FrameAccurate)
	}
	if result.Codec.Verdict != codecid.NoMatch {
		t.Errorf("expected NoMatch, got %v", result.Codec.Verdict)
	}
	if result.Frames == nil || result.Frames.Count != 300 {
		t.Fatalf("expected 300 frames, got %+v", result.Frames)
	}
	// 300 frames over 12 cells.
	if len(result.Frames.Thumbnails) != 12 {
		t.Errorf("expected 12 thumbnails, got %d", len(result.Frames.Thumbnails))
	}
	if !result.ContactSheet || sink.ContactSheet == nil {
		t.Error("expected a contact sheet")
	}
}
