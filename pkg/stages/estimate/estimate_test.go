package estimate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samber/mo"
	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/mp4demux"
	"github.com/user/framepump/pkg/adapters/mp4demux/mp4test"
	"github.com/user/framepump/pkg/mocks"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
)

func assertNear(t *testing.T, name string, got mo.Option[float64], want, tol float64) {
	t.Helper()
	v, ok := got.Get()
	if !ok {
		t.Errorf("%s: expected %.3f, got None", name, want)
		return
	}
	if math.Abs(v-want) > tol {
		t.Errorf("%s: expected %.3f, got %.3f", name, want, v)
	}
}

func TestStage_Execute_Fixture(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := mp4test.Write(fs, "clip.mp4", mp4test.TenSeconds); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	stage := NewStage(mp4demux.NewWithFs(fs), mocks.NewLogger())

	result, err := stage.Execute(context.Background(), pipeline.EstimateInput{Path: "clip.mp4", Precise: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertNear(t, "Fast", result.Fast, 10, 1e-6)
	assertNear(t, "FrameAccurate", result.FrameAccurate, 10, 1e-6)
	assertNear(t, "FormatOnly", result.FormatOnly, 10, 1e-6)
	assertNear(t, "Precise", result.Precise, 10, 1.0/30)
	assertNear(t, "AverageFPS", result.AverageFPS, 30, 1e-6)

	if n, ok := result.FrameCount().Get(); !ok || n != 300 {
		t.Errorf("expected 300 frames, got %v", result.FrameCount())
	}
}

func TestStage_Execute_PreciseDisabled(t *testing.T) {
	src := mocks.NewSource(
		ports.FormatInfo{Duration: 4 * ports.TimeBase},
		ports.StreamInfo{TimeBase: ports.Rational{Num: 1, Den: 1000}, Duration: ports.NoPTS},
		[]ports.Packet{{PTS: 3960, DTS: 3960}},
	)
	stage := NewStage(mocks.NewDemuxer(src), mocks.NewLogger())

	result, err := stage.Execute(context.Background(), pipeline.EstimateInput{Path: "a.mp4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Precise.IsPresent() {
		t.Errorf("expected no precise estimate, got %v", result.Precise)
	}
	if len(src.SeekCalls) != 0 {
		t.Errorf("expected no seeks, got %d", len(src.SeekCalls))
	}
	assertNear(t, "Fast", result.Fast, 4, 1e-9)
	if result.FrameAccurate.IsPresent() {
		t.Errorf("expected unknown frame-accurate estimate, got %v", result.FrameAccurate)
	}
}

func TestStage_Execute_ScanPolicy(t *testing.T) {
	pkts := make([]ports.Packet, 10)
	for i := range pkts {
		pkts[i] = ports.Packet{PTS: int64(i+1) * 10, DTS: int64(i+1) * 10}
	}
	src := mocks.NewSource(
		ports.FormatInfo{Duration: ports.NoPTS},
		ports.StreamInfo{TimeBase: ports.Rational{Num: 1, Den: 1000}, Duration: ports.NoPTS},
		pkts,
	)
	src.SeekFunc = func(stream int, minTS, ts, maxTS int64, flags ports.SeekFlags) error {
		return errors.New("not seekable")
	}
	src.SeekFrameFunc = func(stream int, ts int64, flags ports.SeekFlags) error {
		return nil
	}
	stage := NewStage(mocks.NewDemuxer(src), mocks.NewLogger())

	result, err := stage.Execute(context.Background(), pipeline.EstimateInput{
		Path:      "a.mp4",
		Windows:   []float64{0},
		ScanLimit: 4,
		Precise:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Reading stops after four packets.
	assertNear(t, "Precise", result.Precise, 0.04, 1e-9)
}

func TestStage_Execute_Cancelled(t *testing.T) {
	src := mocks.NewSource(ports.FormatInfo{Duration: ports.TimeBase}, ports.StreamInfo{Duration: ports.NoPTS}, nil)
	stage := NewStage(mocks.NewDemuxer(src), mocks.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stage.Execute(ctx, pipeline.EstimateInput{Path: "a.mp4", Precise: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
