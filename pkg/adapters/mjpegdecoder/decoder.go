// Package mjpegdecoder provides a Motion-JPEG decoder implementing the
// send/receive decoder contract of ports.Decoder.
package mjpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/user/framepump/pkg/ports"
)

var (
	// ErrInvalidPictureSize is returned when the stream has no picture size.
	ErrInvalidPictureSize = errors.New("mjpegdecoder: invalid picture size")

	// ErrDecodeFailed is returned when a packet is not a valid JPEG image.
	ErrDecodeFailed = errors.New("mjpegdecoder: decode failed")

	// ErrWrongFrame is returned when ReceiveFrame gets a frame from another decoder.
	ErrWrongFrame = errors.New("mjpegdecoder: frame not allocated by this decoder")
)

// codecNames lists the codecs this decoder accepts.
var codecNames = map[string]bool{
	"mjpeg":  true,
	"mjpegb": true,
}

// Factory creates MJPEG decoders.
type Factory struct {
	// Delay is the number of decoded pictures held back before output,
	// emulating decoders with internal reordering buffers.
	Delay int
}

// NewFactory creates a Factory with no output delay.
func NewFactory() *Factory {
	return &Factory{}
}

// NewDecoder returns a decoder for stream.
func (f *Factory) NewDecoder(_ ports.Source, stream ports.StreamInfo) (ports.Decoder, error) {
	if !codecNames[stream.CodecName] {
		return nil, fmt.Errorf("%w: codec %q", ports.ErrDecoderNotFound, stream.CodecName)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidPictureSize, stream.Width, stream.Height)
	}

	format := stream.PixelFormat
	if format == ports.PixelFormatNone {
		format = ports.PixelFormatYUVJ420P
	}
	return &Decoder{
		width:  stream.Width,
		height: stream.Height,
		format: format,
		delay:  max(f.Delay, 0),
	}, nil
}

type picture struct {
	img image.Image
	pts int64
}

// Decoder decodes JPEG packets. Output order equals input order.
type Decoder struct {
	width  int
	height int
	format ports.PixelFormat
	delay  int

	queue    []picture
	draining bool
}

func (d *Decoder) Width() int                     { return d.width }
func (d *Decoder) Height() int                    { return d.height }
func (d *Decoder) PixelFormat() ports.PixelFormat { return d.format }

// AllocFrame returns an empty frame.
func (d *Decoder) AllocFrame() ports.Frame {
	return &Frame{pts: ports.NoPTS}
}

// SendPacket decodes pkt into the output queue. A nil pkt starts draining.
// It returns ErrNeedMoreInput when queued output must be received first and
// ErrDrained once draining has begun.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if d.draining {
		return ports.ErrDrained
	}
	if pkt == nil {
		d.draining = true
		return nil
	}
	if len(d.queue) > d.delay {
		return ports.ErrNeedMoreInput
	}

	img, err := jpeg.Decode(bytes.NewReader(pkt.Data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	pts := pkt.PTS
	if pts == ports.NoPTS {
		pts = pkt.DTS
	}
	d.queue = append(d.queue, picture{img: img, pts: pts})
	return nil
}

// ReceiveFrame moves the next picture into f.
func (d *Decoder) ReceiveFrame(f ports.Frame) error {
	frame, ok := f.(*Frame)
	if !ok {
		return ErrWrongFrame
	}

	ready := len(d.queue) > d.delay || (d.draining && len(d.queue) > 0)
	if !ready {
		if d.draining {
			return ports.ErrDrained
		}
		return ports.ErrNeedMoreInput
	}

	p := d.queue[0]
	d.queue[0] = picture{}
	d.queue = d.queue[1:]

	frame.img = p.img
	frame.pts = p.pts
	return nil
}

// Close drops queued pictures.
func (d *Decoder) Close() error {
	d.queue = nil
	return nil
}

// Frame is a decoded JPEG picture.
type Frame struct {
	img image.Image
	pts int64
}

func (f *Frame) Width() int {
	if f.img == nil {
		return 0
	}
	return f.img.Bounds().Dx()
}

func (f *Frame) Height() int {
	if f.img == nil {
		return 0
	}
	return f.img.Bounds().Dy()
}

// PixelFormat reports the layout of the decoded image.
func (f *Frame) PixelFormat() ports.PixelFormat {
	switch img := f.img.(type) {
	case *image.YCbCr:
		switch img.SubsampleRatio {
		case image.YCbCrSubsampleRatio444:
			return ports.PixelFormatYUVJ444P
		case image.YCbCrSubsampleRatio422:
			return ports.PixelFormatYUVJ422P
		default:
			return ports.PixelFormatYUVJ420P
		}
	case *image.Gray:
		return ports.PixelFormatGray
	case *image.RGBA, *image.NRGBA:
		return ports.PixelFormatRGBA
	default:
		return ports.PixelFormatNone
	}
}

func (f *Frame) BestEffortTimestamp() int64 { return f.pts }

// Image returns the decoded picture.
func (f *Frame) Image() image.Image { return f.img }

// Unref drops the picture.
func (f *Frame) Unref() {
	f.img = nil
	f.pts = ports.NoPTS
}

// Free releases the frame.
func (f *Frame) Free() { f.Unref() }

// Ensure Factory implements ports.DecoderFactory
var _ ports.DecoderFactory = (*Factory)(nil)

// Ensure Frame implements ports.ImageFrame
var _ ports.ImageFrame = (*Frame)(nil)
