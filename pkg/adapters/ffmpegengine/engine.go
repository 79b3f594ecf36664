//go:build ffmpeg

// Package ffmpegengine provides the libav-backed demuxer, decoders and pixel
// converter via go-astiav. Build with -tags ffmpeg and FFmpeg development libraries.
package ffmpegengine

import (
	"errors"
	"fmt"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/samber/lo"

	"github.com/user/framepump/pkg/ports"
)

// Available reports whether the engine was compiled in.
const Available = true

// Engine opens containers with libavformat.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// SetEngineLogLevel sets the process-wide libav log level.
func (e *Engine) SetEngineLogLevel(level ports.LogLevel) {
	astiav.SetLogLevel(toAVLogLevel(level))
}

func toAVLogLevel(level ports.LogLevel) astiav.LogLevel {
	switch level {
	case ports.LevelDebug:
		return astiav.LogLevelDebug
	case ports.LevelInfo:
		return astiav.LogLevelInfo
	case ports.LevelWarn:
		return astiav.LogLevelWarning
	case ports.LevelError:
		return astiav.LogLevelError
	default:
		return astiav.LogLevelQuiet
	}
}

// Open opens path read-only.
func (e *Engine) Open(path string) (ports.Source, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("ffmpegengine: alloc format context failed")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}

	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	return &Source{fc: fc, size: size}, nil
}

// Source wraps an opened AVFormatContext.
type Source struct {
	fc   *astiav.FormatContext
	pkt  *astiav.Packet
	size int64
}

// FindStreamInfo reads packets as needed to resolve stream parameters.
func (s *Source) FindStreamInfo() error {
	if err := s.fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("find stream info: %w", err)
	}
	return nil
}

// Format returns container-level metadata.
func (s *Source) Format() ports.FormatInfo {
	info := ports.FormatInfo{
		Duration: s.fc.Duration(),
		BitRate:  s.fc.BitRate(),
		Size:     s.size,
	}
	if s.fc.Duration() == astiav.NoPtsValue {
		info.Duration = ports.NoPTS
	}
	if in := s.fc.InputFormat(); in != nil {
		info.FormatName = in.Name()
	}
	return info
}

// Streams returns metadata for every stream.
func (s *Source) Streams() []ports.StreamInfo {
	return lo.Map(s.fc.Streams(), func(st *astiav.Stream, _ int) ports.StreamInfo {
		return streamInfo(st)
	})
}

func streamInfo(st *astiav.Stream) ports.StreamInfo {
	cp := st.CodecParameters()
	info := ports.StreamInfo{
		Index:        st.Index(),
		MediaType:    mediaType(cp.MediaType()),
		TimeBase:     rational(st.TimeBase()),
		Duration:     st.Duration(),
		NbFrames:     st.NbFrames(),
		AvgFrameRate: rational(st.AvgFrameRate()),
		RFrameRate:   rational(st.RFrameRate()),
		CodecName:    cp.CodecID().Name(),
		CodecTag:     uint32(cp.CodecTag()),
	}
	if st.Duration() == astiav.NoPtsValue {
		info.Duration = ports.NoPTS
	}
	if info.MediaType == ports.MediaTypeVideo {
		info.Width = cp.Width()
		info.Height = cp.Height()
		info.PixelFormat = pixelFormat(cp.PixelFormat())
	}
	return info
}

func mediaType(t astiav.MediaType) ports.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return ports.MediaTypeVideo
	case astiav.MediaTypeAudio:
		return ports.MediaTypeAudio
	case astiav.MediaTypeSubtitle:
		return ports.MediaTypeSubtitle
	case astiav.MediaTypeData:
		return ports.MediaTypeData
	default:
		return ports.MediaTypeUnknown
	}
}

func rational(r astiav.Rational) ports.Rational {
	return ports.Rational{Num: r.Num(), Den: r.Den()}
}

// BestVideoStream returns the video stream with the largest picture that has a decoder.
func (s *Source) BestVideoStream() (int, error) {
	candidates := lo.Filter(s.fc.Streams(), func(st *astiav.Stream, _ int) bool {
		cp := st.CodecParameters()
		return cp.MediaType() == astiav.MediaTypeVideo && astiav.FindDecoder(cp.CodecID()) != nil
	})
	if len(candidates) == 0 {
		return -1, ports.ErrStreamNotFound
	}
	best := lo.MaxBy(candidates, func(a, b *astiav.Stream) bool {
		return a.CodecParameters().Width()*a.CodecParameters().Height() >
			b.CodecParameters().Width()*b.CodecParameters().Height()
	})
	return best.Index(), nil
}

func seekFlags(flags ports.SeekFlags) astiav.SeekFlags {
	var out []astiav.SeekFlag
	if flags.Has(ports.SeekBackward) {
		out = append(out, astiav.SeekFlagBackward)
	}
	if flags.Has(ports.SeekAny) {
		out = append(out, astiav.SeekFlagAny)
	}
	return astiav.NewSeekFlags(out...)
}

// Seek maps to avformat_seek_file.
func (s *Source) Seek(stream int, minTS, ts, maxTS int64, flags ports.SeekFlags) error {
	if err := s.fc.SeekFile(stream, minTS, ts, maxTS, seekFlags(flags)); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrSeekFailed, err)
	}
	return nil
}

// SeekFrame maps to av_seek_frame.
func (s *Source) SeekFrame(stream int, ts int64, flags ports.SeekFlags) error {
	if err := s.fc.SeekFrame(stream, ts, seekFlags(flags)); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrSeekFailed, err)
	}
	return nil
}

// ReadPacket reads the next packet. The payload is copied into pkt.
func (s *Source) ReadPacket(pkt *ports.Packet) error {
	if s.pkt == nil {
		s.pkt = astiav.AllocPacket()
	}
	if err := s.fc.ReadFrame(s.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return ports.ErrEndOfInput
		}
		return fmt.Errorf("read frame: %w", err)
	}
	defer s.pkt.Unref()

	pkt.StreamIndex = s.pkt.StreamIndex()
	pkt.PTS = timestamp(s.pkt.Pts())
	pkt.DTS = timestamp(s.pkt.Dts())
	pkt.Keyframe = s.pkt.Flags().Has(astiav.PacketFlagKey)
	pkt.Data = append(pkt.Data[:0], s.pkt.Data()...)
	return nil
}

func timestamp(v int64) int64 {
	if v == astiav.NoPtsValue {
		return ports.NoPTS
	}
	return v
}

// Close closes the input and frees the packet.
func (s *Source) Close() error {
	if s.pkt != nil {
		s.pkt.Free()
		s.pkt = nil
	}
	if s.fc != nil {
		s.fc.CloseInput()
		s.fc.Free()
		s.fc = nil
	}
	return nil
}

// Ensure Engine implements ports.Demuxer and ports.LogLevelSetter
var (
	_ ports.Demuxer        = (*Engine)(nil)
	_ ports.LogLevelSetter = (*Engine)(nil)
)
