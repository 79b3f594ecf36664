package pump

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/goconverter"
	"github.com/user/framepump/pkg/adapters/mjpegdecoder"
	"github.com/user/framepump/pkg/adapters/mp4demux"
	"github.com/user/framepump/pkg/adapters/mp4demux/mp4test"
	"github.com/user/framepump/pkg/adapters/pixbuf"
	"github.com/user/framepump/pkg/mocks"
	"github.com/user/framepump/pkg/ports"
)

var millis = ports.Rational{Num: 1, Den: 1000}

func fixtureDeps(t *testing.T, c mp4test.Clip) Deps {
	t.Helper()
	return layoutDeps(t, mp4test.Write, c)
}

// layoutDeps wires the pure-Go engine over clip.mp4 as written by write.
func layoutDeps(t *testing.T, write func(afero.Fs, string, mp4test.Clip) error, c mp4test.Clip) Deps {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := write(fs, "clip.mp4", c); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return Deps{
		Demuxer:    mp4demux.NewWithFs(fs),
		Decoders:   mjpegdecoder.NewFactory(),
		Converters: goconverter.NewFactory(),
		Buffers:    pixbuf.NewAllocator(),
	}
}

type mockDeps struct {
	src      *mocks.Source
	demuxer  *mocks.Demuxer
	decoder  *mocks.Decoder
	decoders *mocks.DecoderFactory
	convs    *mocks.ConverterFactory
	buffers  *mocks.BufferAllocator
	log      *mocks.Logger
}

func (m *mockDeps) deps() Deps {
	return Deps{Demuxer: m.demuxer, Decoders: m.decoders, Converters: m.convs, Buffers: m.buffers, Logger: m.log}
}

func newMockDeps(packets []ports.Packet) *mockDeps {
	src := mocks.NewSource(
		ports.FormatInfo{Duration: ports.NoPTS},
		ports.StreamInfo{TimeBase: millis, Duration: ports.NoPTS, CodecName: "h264"},
		packets,
	)
	dec := &mocks.Decoder{W: 8, H: 4, Format: ports.PixelFormatYUV420P}
	return &mockDeps{
		src:      src,
		demuxer:  mocks.NewDemuxer(src),
		decoder:  dec,
		decoders: &mocks.DecoderFactory{Decoder: dec},
		convs:    &mocks.ConverterFactory{},
		buffers:  &mocks.BufferAllocator{},
		log:      mocks.NewLogger(),
	}
}

func packets(n int) []ports.Packet {
	pkts := make([]ports.Packet, n)
	for i := range pkts {
		pkts[i] = ports.Packet{StreamIndex: 0, PTS: int64(i) * 40, DTS: int64(i) * 40, Keyframe: true, Data: []byte{byte(i)}}
	}
	return pkts
}

func drain(t *testing.T, s *Session) []*Frame {
	t.Helper()
	var frames []*Frame
	for i := 0; i < 10000; i++ {
		f, err := s.NextFrame()
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("NextFrame %d failed: %v", i, err)
		}
		frames = append(frames, f)
	}
	t.Fatal("session never reached end of stream")
	return nil
}

func TestSession_Fixture(t *testing.T) {
	tests := []struct {
		name  string
		write func(afero.Fs, string, mp4test.Clip) error
		clip  mp4test.Clip
	}{
		{"fragmented", mp4test.Write, mp4test.TenSeconds},
		{"progressive", mp4test.WriteProgressive, mp4test.TenSeconds},
		{"progressive chunked co64", mp4test.WriteProgressive,
			mp4test.Clip{Width: 64, Height: 48, FPS: 30, Frames: 300, SamplesPerChunk: 7, Co64: true}},
		{"fragmented edit list", mp4test.Write,
			mp4test.Clip{Width: 64, Height: 48, FPS: 30, Frames: 300, Delay: 2}},
		{"progressive edit list", mp4test.WriteProgressive,
			mp4test.Clip{Width: 64, Height: 48, FPS: 30, Frames: 300, SamplesPerChunk: 10, Delay: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkFixtureSession(t, layoutDeps(t, tt.write, tt.clip), tt.clip)
		})
	}
}

// checkFixtureSession decodes every frame of clip and checks timing and color.
func checkFixtureSession(t *testing.T, deps Deps, clip mp4test.Clip) {
	t.Helper()
	s, info, err := Open("clip.mp4", deps)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if info.Width != clip.Width || info.Height != clip.Height {
		t.Errorf("expected %dx%d, got %dx%d", clip.Width, clip.Height, info.Width, info.Height)
	}
	if info.TimeBase != (ports.Rational{Num: 1, Den: int(clip.Timescale())}) {
		t.Errorf("unexpected time base %+v", info.TimeBase)
	}
	if d, ok := info.Duration.Get(); !ok || d != 10 {
		t.Errorf("expected 10s duration, got %v (%v)", d, ok)
	}
	if info.Codec != "mjpeg" {
		t.Errorf("expected mjpeg, got %q", info.Codec)
	}

	frames := drain(t, s)
	if len(frames) != clip.Frames {
		t.Fatalf("expected %d frames, got %d", clip.Frames, len(frames))
	}

	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d: unexpected index %d", i, f.Index)
		}
		if f.Buffer.Width() != info.Width || f.Buffer.Height() != info.Height {
			t.Errorf("frame %d: buffer is %dx%d", i, f.Buffer.Width(), f.Buffer.Height())
		}
		if f.Buffer.PixelFormat() != ports.PixelFormatBGRA {
			t.Errorf("frame %d: unexpected format %q", i, f.Buffer.PixelFormat())
		}
		pts, ok := f.PTS.Get()
		if !ok || math.Abs(pts-float64(i)/30) > 1e-9 {
			t.Errorf("frame %d: unexpected pts %v (%v)", i, pts, ok)
		}
	}

	for _, i := range []int{0, 17, 150, 299} {
		img, err := pixbuf.ToRGBA(frames[i].Buffer)
		if err != nil {
			t.Fatalf("ToRGBA failed: %v", err)
		}
		got := img.RGBAAt(clip.Width/2, clip.Height/2)
		want := mp4test.FrameColor(i)
		if diff(got.R, want.R) > 12 || diff(got.G, want.G) > 12 || diff(got.B, want.B) > 12 {
			t.Errorf("frame %d: expected color near %v, got %v", i, want, got)
		}
	}

	for _, f := range frames {
		f.Buffer.Release()
	}

	// end of stream is sticky
	if f, err := s.NextFrame(); f != nil || !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF again, got %v, %v", f, err)
	}
	if s.State() != StateDone {
		t.Errorf("expected done state, got %s", s.State())
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestOpen_UnreadablePath(t *testing.T) {
	_, _, err := Open("missing.mp4", fixtureDeps(t, mp4test.TenSeconds))
	if !errors.Is(err, ErrOpenFailure) {
		t.Fatalf("expected ErrOpenFailure, got %v", err)
	}
	var oerr *OpenError
	if !errors.As(err, &oerr) || oerr.Path != "missing.mp4" {
		t.Errorf("expected *OpenError for missing.mp4, got %v", err)
	}
}

func TestOpen_Failures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *mockDeps)
		want   error
		closes int
	}{
		{
			name:  "open",
			setup: func(m *mockDeps) { m.demuxer.Source = nil },
			want:  ErrOpenFailure,
		},
		{
			name: "stream info",
			setup: func(m *mockDeps) {
				m.src.FindStreamInfoFunc = func() error { return errors.New("corrupt") }
			},
			want:   ErrOpenFailure,
			closes: 1,
		},
		{
			name: "no video stream",
			setup: func(m *mockDeps) {
				m.src.StreamList[0].MediaType = ports.MediaTypeAudio
			},
			want:   ErrNoVideoStream,
			closes: 1,
		},
		{
			name: "stream index out of range",
			setup: func(m *mockDeps) {
				m.src.BestVideoStreamFunc = func() (int, error) { return 3, nil }
			},
			want:   ErrNoVideoStream,
			closes: 1,
		},
		{
			name:   "no decoder",
			setup:  func(m *mockDeps) { m.decoders.Decoder = nil },
			want:   ErrDecoderUnavailable,
			closes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockDeps(packets(3))
			tt.setup(m)

			s, _, err := Open("a.mp4", m.deps())
			if s != nil {
				t.Error("expected nil session")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if m.src.Closes != tt.closes {
				t.Errorf("expected %d source closes, got %d", tt.closes, m.src.Closes)
			}
		})
	}
}

func TestOpen_DecoderErrorIsWrapped(t *testing.T) {
	m := newMockDeps(nil)
	m.decoders.Decoder = nil

	_, _, err := Open("a.mp4", m.deps())
	if !errors.Is(err, ports.ErrDecoderNotFound) || !errors.Is(err, ErrDecoderUnavailable) {
		t.Errorf("expected both sentinels to match, got %v", err)
	}
}

func TestOpen_IncompleteDeps(t *testing.T) {
	m := newMockDeps(nil)
	deps := m.deps()
	deps.Buffers = nil

	if _, _, err := Open("a.mp4", deps); !errors.Is(err, ErrOpenFailure) {
		t.Errorf("expected ErrOpenFailure, got %v", err)
	}
	if len(m.demuxer.OpenCalls) != 0 {
		t.Errorf("expected no open, got %v", m.demuxer.OpenCalls)
	}
}

func TestOpen_EngineLogLevel(t *testing.T) {
	m := newMockDeps(nil)
	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	s, _, err = Open("a.mp4", m.deps(), WithEngineLogLevel(ports.LevelDebug))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	s, _, err = Open("a.mp4", m.deps(), WithoutEngineLogLevel())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	want := []ports.LogLevel{ports.LevelError, ports.LevelDebug}
	if len(m.demuxer.LogLevels) != len(want) {
		t.Fatalf("expected %v, got %v", want, m.demuxer.LogLevels)
	}
	for i := range want {
		if m.demuxer.LogLevels[i] != want[i] {
			t.Errorf("level %d: expected %v, got %v", i, want[i], m.demuxer.LogLevels[i])
		}
	}
}

func TestOpen_Duration(t *testing.T) {
	tests := []struct {
		name   string
		format int64
		stream int64
		want   float64
		none   bool
	}{
		{"container", 3 * ports.TimeBase, 9000, 3, false},
		{"stream", ports.NoPTS, 2500, 2.5, false},
		{"unknown", ports.NoPTS, ports.NoPTS, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockDeps(nil)
			m.src.FormatInfo.Duration = tt.format
			m.src.StreamList[0].Duration = tt.stream

			s, info, err := Open("a.mp4", m.deps())
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer s.Close()

			got, ok := info.Duration.Get()
			if tt.none {
				if ok {
					t.Errorf("expected None, got %v", got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, ok)
			}
		})
	}
}

func TestNextFrame_DelayedDecoderYieldsEveryFrameOnce(t *testing.T) {
	for _, delay := range []int{0, 1, 3, 16} {
		m := newMockDeps(packets(10))
		m.decoder.Delay = delay

		s, _, err := Open("a.mp4", m.deps())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}

		frames := drain(t, s)
		if len(frames) != 10 {
			t.Fatalf("delay %d: expected 10 frames, got %d", delay, len(frames))
		}
		for i, f := range frames {
			pts, ok := f.PTS.Get()
			if !ok || math.Abs(pts-float64(i)*0.04) > 1e-9 {
				t.Errorf("delay %d: frame %d has pts %v (%v)", delay, i, pts, ok)
			}
		}
		if m.decoder.Flushes == 0 {
			t.Errorf("delay %d: decoder was never flushed", delay)
		}
		s.Close()
	}
}

func TestNextFrame_SkipsOtherStreams(t *testing.T) {
	pkts := []ports.Packet{
		{StreamIndex: 0, PTS: 0},
		{StreamIndex: 1, PTS: 0},
		{StreamIndex: 1, PTS: 20},
		{StreamIndex: 0, PTS: 40},
		{StreamIndex: 2, PTS: 40},
	}
	m := newMockDeps(pkts)
	m.src.StreamList = append(m.src.StreamList,
		ports.StreamInfo{Index: 1, MediaType: ports.MediaTypeAudio},
		ports.StreamInfo{Index: 2, MediaType: ports.MediaTypeData},
	)

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if frames := drain(t, s); len(frames) != 2 {
		t.Errorf("expected 2 frames, got %d", len(frames))
	}
	if len(m.decoder.Sent) != 2 {
		t.Errorf("expected only video packets to be sent, got %v", m.decoder.Sent)
	}
}

func TestNextFrame_EmptyStream(t *testing.T) {
	m := newMockDeps(nil)
	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if f, err := s.NextFrame(); f != nil || !errors.Is(err, io.EOF) {
		t.Errorf("expected immediate io.EOF, got %v, %v", f, err)
	}
}

func TestNextFrame_UnknownTimestamp(t *testing.T) {
	pkts := packets(2)
	pkts[1].PTS = ports.NoPTS
	m := newMockDeps(pkts)

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	frames := drain(t, s)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[1].PTS.IsPresent() {
		t.Errorf("expected unknown pts, got %v", frames[1].PTS)
	}
}

func TestNextFrame_ReadError(t *testing.T) {
	m := newMockDeps(packets(2))
	readErr := errors.New("disk gone")
	m.src.FinalErr = readErr
	m.decoder.Delay = 5

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var rerr *ReadError
	if !errors.As(err, &rerr) || !errors.Is(err, readErr) {
		t.Fatalf("expected *ReadError wrapping cause, got %v", err)
	}
	if m.decoder.Flushes != 0 {
		t.Errorf("read error must not flush the decoder, got %d flushes", m.decoder.Flushes)
	}
	if s.State() != StateReading {
		t.Errorf("expected reading state, got %s", s.State())
	}
}

func TestNextFrame_SendError(t *testing.T) {
	m := newMockDeps(packets(2))
	bad := errors.New("invalid data")
	m.decoder.SendPacketFunc = func(pkt *ports.Packet) error { return bad }

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Op != OpSend || !errors.Is(err, bad) {
		t.Errorf("expected send DecodeError, got %v", err)
	}
}

func TestNextFrame_FullDecoderKeepsPacket(t *testing.T) {
	m := newMockDeps(packets(3))
	var calls int
	var accepted []int64
	m.decoder.SendPacketFunc = func(pkt *ports.Packet) error {
		calls++
		if pkt != nil && calls == 2 {
			return ports.ErrNeedMoreInput
		}
		if pkt != nil {
			accepted = append(accepted, pkt.PTS)
		}
		return nil
	}
	var queue []int64
	var drainingNow bool
	m.decoder.ReceiveFrameFunc = func(f ports.Frame) error {
		// hand out one frame per accepted packet
		if len(accepted) > len(queue) {
			queue = append(queue, accepted[len(queue)])
			mf := f.(*mocks.Frame)
			mf.W, mf.H, mf.PTS = 8, 4, queue[len(queue)-1]
			return nil
		}
		if m.decoder.Flushes > 0 {
			drainingNow = true
			return ports.ErrDrained
		}
		return ports.ErrNeedMoreInput
	}

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	frames := drain(t, s)
	if len(frames) != 3 || !drainingNow {
		t.Fatalf("expected 3 frames then drain, got %d", len(frames))
	}
	want := []int64{0, 40, 80}
	for i, w := range want {
		if accepted[i] != w {
			t.Errorf("packet %d: expected pts %d accepted, got %d", i, w, accepted[i])
		}
	}
}

func TestNextFrame_FlushErrors(t *testing.T) {
	m := newMockDeps(nil)
	bad := errors.New("flush rejected")
	m.decoder.SendPacketFunc = func(pkt *ports.Packet) error {
		if pkt == nil {
			return bad
		}
		return nil
	}

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Op != OpFlush {
		t.Errorf("expected flush DecodeError, got %v", err)
	}
}

func TestNextFrame_RepeatedFlushIgnoresDrainedSignal(t *testing.T) {
	m := newMockDeps(packets(4))
	m.decoder.Delay = 4

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if frames := drain(t, s); len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	// one flush at end of input plus one per drained frame and the final drain check
	if m.decoder.Flushes < 4 {
		t.Errorf("expected repeated flushes while draining, got %d", m.decoder.Flushes)
	}
}

func TestNextFrame_ReceiveError(t *testing.T) {
	m := newMockDeps(packets(1))
	bad := errors.New("corrupt picture")
	m.decoder.ReceiveFrameFunc = func(ports.Frame) error { return bad }

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Op != OpReceive || !errors.Is(err, bad) {
		t.Errorf("expected receive DecodeError, got %v", err)
	}
}

func TestNextFrame_ConvertSetupError(t *testing.T) {
	m := newMockDeps(packets(1))
	bad := errors.New("unsupported format")
	m.convs.NewConverterFunc = func(int, int, ports.PixelFormat, int, int, ports.PixelFormat) (ports.Converter, error) {
		return nil, bad
	}

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var cerr *ConvertSetupError
	if !errors.As(err, &cerr) || !errors.Is(err, bad) {
		t.Errorf("expected *ConvertSetupError, got %v", err)
	}
	if m.src.Reads != 0 {
		t.Errorf("expected no reads before converter setup, got %d", m.src.Reads)
	}
}

func TestNextFrame_ConverterCreatedOnce(t *testing.T) {
	m := newMockDeps(packets(5))

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	drain(t, s)
	s.Close()

	if len(m.convs.Calls) != 1 {
		t.Fatalf("expected 1 converter, got %d", len(m.convs.Calls))
	}
	call := m.convs.Calls[0]
	want := mocks.ConvertCall{SrcW: 8, SrcH: 4, SrcFmt: ports.PixelFormatYUV420P, DstW: 8, DstH: 4, DstFmt: ports.PixelFormatBGRA}
	if call != want {
		t.Errorf("expected %+v, got %+v", want, call)
	}
	if m.convs.Converter.Converts != 5 {
		t.Errorf("expected 5 conversions, got %d", m.convs.Converter.Converts)
	}
}

func TestNextFrame_BufferAllocError(t *testing.T) {
	m := newMockDeps(packets(2))
	bad := errors.New("out of memory")
	m.buffers.AllocateFunc = func(int, int, ports.PixelFormat) (ports.PixelBuffer, error) { return nil, bad }

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var berr *BufferAllocError
	if !errors.As(err, &berr) || !errors.Is(err, bad) {
		t.Errorf("expected *BufferAllocError, got %v", err)
	}
	if m.decoder.Frames[0].Unrefs == 0 {
		t.Error("expected the decoded frame to be unreferenced")
	}
}

func TestNextFrame_LockFailureReleasesBuffer(t *testing.T) {
	m := newMockDeps(packets(1))
	buf := &mocks.PixelBuffer{W: 8, H: 4, Format: ports.PixelFormatBGRA, Data: make([]byte, 128), Refs: 1, LockErr: errors.New("busy")}
	m.buffers.AllocateFunc = func(int, int, ports.PixelFormat) (ports.PixelBuffer, error) { return buf, nil }

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var berr *BufferAllocError
	if !errors.As(err, &berr) {
		t.Fatalf("expected *BufferAllocError, got %v", err)
	}
	if buf.Refs != 0 {
		t.Errorf("expected buffer released, refs = %d", buf.Refs)
	}
}

func TestNextFrame_ConvertErrorReleasesBuffer(t *testing.T) {
	m := newMockDeps(packets(1))
	m.convs.Converter = &mocks.Converter{
		ConvertFunc: func(ports.Frame, []byte, int) error { return errors.New("bad planes") },
	}

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	_, err = s.NextFrame()
	var cerr *ConvertError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConvertError, got %v", err)
	}
	buf := m.buffers.Buffers[0]
	if buf.Refs != 0 || buf.Locks != buf.Unlocks {
		t.Errorf("expected buffer unlocked and released, got refs=%d locks=%d unlocks=%d", buf.Refs, buf.Locks, buf.Unlocks)
	}
}

func TestNextFrame_BufferHandedToCaller(t *testing.T) {
	m := newMockDeps(packets(1))

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	f, err := s.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	buf := m.buffers.Buffers[0]
	if f.Buffer != buf {
		t.Fatal("expected the allocated buffer to be returned")
	}
	if buf.Refs != 1 || buf.Locks != 1 || buf.Unlocks != 1 {
		t.Errorf("expected one unlocked reference, got refs=%d locks=%d unlocks=%d", buf.Refs, buf.Locks, buf.Unlocks)
	}
}

func TestClose(t *testing.T) {
	m := newMockDeps(packets(3))

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.NextFrame(); err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if m.convs.Converter.Closes != 1 {
		t.Errorf("expected converter closed once, got %d", m.convs.Converter.Closes)
	}
	if !m.decoder.Frames[0].Freed {
		t.Error("expected frame freed")
	}
	if m.decoder.Closes != 1 || m.src.Closes != 1 {
		t.Errorf("expected decoder and source closed once, got %d and %d", m.decoder.Closes, m.src.Closes)
	}
	if _, err := s.NextFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed state, got %s", s.State())
	}
}

func TestClose_NilSession(t *testing.T) {
	var s *Session
	if err := s.Close(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClose_BeforeFirstFrame(t *testing.T) {
	m := newMockDeps(packets(1))

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if m.convs.Converter != nil {
		t.Error("converter must not be created before the first frame")
	}
}

func TestSession_LogsUnderPumpComponent(t *testing.T) {
	m := newMockDeps(packets(1))

	s, _, err := Open("a.mp4", m.deps())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	drain(t, s)
	s.Close()

	entries := m.log.Entries()
	if len(entries) == 0 {
		t.Fatal("expected log entries")
	}
	for _, e := range entries {
		if e.Component != "pump" {
			t.Errorf("expected pump component, got %q", e.Component)
		}
	}
	if s.ID() == "" {
		t.Error("expected a session id")
	}
}

func TestOpen_NilLoggerDiscards(t *testing.T) {
	m := newMockDeps(packets(1))
	deps := m.deps()
	deps.Logger = nil

	s, _, err := Open("a.mp4", deps)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.logger.(ports.NopLogger); !ok {
		t.Errorf("expected ports.NopLogger, got %T", s.logger)
	}
	drain(t, s)
}
