//go:build ffmpeg

package ffmpegengine

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/user/framepump/pkg/ports"
)

// ErrForeignSource is returned when a decoder is requested for a source opened by another engine.
var ErrForeignSource = errors.New("ffmpegengine: source was not opened by this engine")

// NewDecoder opens a libavcodec decoder for stream.
func (e *Engine) NewDecoder(src ports.Source, stream ports.StreamInfo) (ports.Decoder, error) {
	s, ok := src.(*Source)
	if !ok {
		return nil, ErrForeignSource
	}
	streams := s.fc.Streams()
	if stream.Index < 0 || stream.Index >= len(streams) {
		return nil, fmt.Errorf("%w: stream %d", ports.ErrStreamNotFound, stream.Index)
	}
	cp := streams[stream.Index].CodecParameters()

	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("%w: codec %q", ports.ErrDecoderNotFound, stream.CodecName)
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, fmt.Errorf("%w: alloc codec context for %q", ports.ErrDecoderNotFound, codec.Name())
	}
	if err := cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("codec parameters: %w", err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("%w: open %q: %v", ports.ErrDecoderNotFound, codec.Name(), err)
	}

	return &Decoder{cc: cc, pkt: astiav.AllocPacket(), pts: newPTSGuesser()}, nil
}

// Decoder wraps an opened AVCodecContext.
type Decoder struct {
	cc  *astiav.CodecContext
	pkt *astiav.Packet
	pts *ptsGuesser
}

func (d *Decoder) Width() int                     { return d.cc.Width() }
func (d *Decoder) Height() int                    { return d.cc.Height() }
func (d *Decoder) PixelFormat() ports.PixelFormat { return pixelFormat(d.cc.PixelFormat()) }

// AllocFrame allocates an AVFrame.
func (d *Decoder) AllocFrame() ports.Frame {
	return &Frame{f: astiav.AllocFrame(), ts: ports.NoPTS}
}

// SendPacket maps to avcodec_send_packet.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if pkt == nil {
		return decodeErr(d.cc.SendPacket(nil))
	}

	d.pkt.Unref()
	if err := d.pkt.FromData(pkt.Data); err != nil {
		return fmt.Errorf("packet from data: %w", err)
	}
	d.pkt.SetPts(avTimestamp(pkt.PTS))
	d.pkt.SetDts(avTimestamp(pkt.DTS))
	d.pkt.SetStreamIndex(pkt.StreamIndex)
	if pkt.Keyframe {
		d.pkt.SetFlags(d.pkt.Flags().Add(astiav.PacketFlagKey))
	}
	return decodeErr(d.cc.SendPacket(d.pkt))
}

// ReceiveFrame maps to avcodec_receive_frame.
func (d *Decoder) ReceiveFrame(f ports.Frame) error {
	frame, ok := f.(*Frame)
	if !ok {
		return fmt.Errorf("ffmpegengine: unexpected frame type %T", f)
	}
	if err := d.cc.ReceiveFrame(frame.f); err != nil {
		return decodeErr(err)
	}
	frame.ts = d.pts.guess(timestamp(frame.f.Pts()), timestamp(frame.f.PktDts()))
	return nil
}

func decodeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return ports.ErrNeedMoreInput
	case errors.Is(err, astiav.ErrEof):
		return ports.ErrDrained
	default:
		return err
	}
}

func avTimestamp(v int64) int64 {
	if v == ports.NoPTS {
		return astiav.NoPtsValue
	}
	return v
}

// Close frees the packet and codec context.
func (d *Decoder) Close() error {
	if d.pkt != nil {
		d.pkt.Free()
		d.pkt = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}

// Frame wraps an AVFrame.
type Frame struct {
	f  *astiav.Frame
	ts int64
}

func (f *Frame) Width() int                     { return f.f.Width() }
func (f *Frame) Height() int                    { return f.f.Height() }
func (f *Frame) PixelFormat() ports.PixelFormat { return pixelFormat(f.f.PixelFormat()) }

// BestEffortTimestamp returns the timestamp chosen from the frame pts and
// packet dts when the frame was received.
func (f *Frame) BestEffortTimestamp() int64 {
	return f.ts
}

func (f *Frame) Unref() {
	f.f.Unref()
	f.ts = ports.NoPTS
}

func (f *Frame) Free() {
	if f.f != nil {
		f.f.Free()
		f.f = nil
	}
}

// Ensure Engine implements ports.DecoderFactory
var _ ports.DecoderFactory = (*Engine)(nil)
