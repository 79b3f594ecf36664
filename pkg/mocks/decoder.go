package mocks

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/framepump/pkg/ports"
)

// Frame is a mock implementation of ports.ImageFrame.
type Frame struct {
	W, H   int
	Format ports.PixelFormat
	PTS    int64
	Img    image.Image

	Unrefs int
	Freed  bool
}

func (m *Frame) Width() int                     { return m.W }
func (m *Frame) Height() int                    { return m.H }
func (m *Frame) PixelFormat() ports.PixelFormat { return m.Format }
func (m *Frame) BestEffortTimestamp() int64     { return m.PTS }
func (m *Frame) Image() image.Image             { return m.Img }

func (m *Frame) Unref() {
	m.Unrefs++
	m.Img = nil
	m.PTS = ports.NoPTS
}

func (m *Frame) Free() { m.Freed = true }

var _ ports.ImageFrame = (*Frame)(nil)

// Decoder is a mock implementation of ports.Decoder. By default each packet
// becomes one solid-color frame carrying the packet PTS, held back by Delay
// pictures until draining.
type Decoder struct {
	mu sync.Mutex

	W, H   int
	Format ports.PixelFormat
	Delay  int

	SendPacketFunc   func(pkt *ports.Packet) error
	ReceiveFrameFunc func(f ports.Frame) error

	queue    []int64
	draining bool

	Sent     []int64
	Flushes  int
	Frames   []*Frame
	Received int
	Closes   int
}

func (m *Decoder) Width() int                     { return m.W }
func (m *Decoder) Height() int                    { return m.H }
func (m *Decoder) PixelFormat() ports.PixelFormat { return m.Format }

func (m *Decoder) AllocFrame() ports.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &Frame{PTS: ports.NoPTS}
	m.Frames = append(m.Frames, f)
	return f
}

func (m *Decoder) SendPacket(pkt *ports.Packet) error {
	m.mu.Lock()
	if pkt == nil {
		m.Flushes++
	} else {
		m.Sent = append(m.Sent, pkt.PTS)
	}
	m.mu.Unlock()

	if m.SendPacketFunc != nil {
		return m.SendPacketFunc(pkt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draining {
		return ports.ErrDrained
	}
	if pkt == nil {
		m.draining = true
		return nil
	}
	if len(m.queue) > m.Delay {
		return ports.ErrNeedMoreInput
	}
	m.queue = append(m.queue, pkt.PTS)
	return nil
}

func (m *Decoder) ReceiveFrame(f ports.Frame) error {
	if m.ReceiveFrameFunc != nil {
		return m.ReceiveFrameFunc(f)
	}

	frame, ok := f.(*Frame)
	if !ok {
		return fmt.Errorf("mocks: unexpected frame type %T", f)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) <= m.Delay && !(m.draining && len(m.queue) > 0) {
		if m.draining {
			return ports.ErrDrained
		}
		return ports.ErrNeedMoreInput
	}

	pts := m.queue[0]
	m.queue = m.queue[1:]
	m.Received++

	frame.W, frame.H, frame.Format = m.W, m.H, m.Format
	frame.PTS = pts
	frame.Img = solidImage(m.W, m.H, m.Received)
	return nil
}

func (m *Decoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	return nil
}

func solidImage(w, h, n int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: uint8(n), G: uint8(n >> 8), B: 0x80, A: 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var _ ports.Decoder = (*Decoder)(nil)

// DecoderFactory is a mock implementation of ports.DecoderFactory.
type DecoderFactory struct {
	Decoder        *Decoder
	NewDecoderFunc func(src ports.Source, stream ports.StreamInfo) (ports.Decoder, error)

	Streams []ports.StreamInfo
}

func (m *DecoderFactory) NewDecoder(src ports.Source, stream ports.StreamInfo) (ports.Decoder, error) {
	m.Streams = append(m.Streams, stream)
	if m.NewDecoderFunc != nil {
		return m.NewDecoderFunc(src, stream)
	}
	if m.Decoder == nil {
		return nil, fmt.Errorf("%w: codec %q", ports.ErrDecoderNotFound, stream.CodecName)
	}
	return m.Decoder, nil
}

var _ ports.DecoderFactory = (*DecoderFactory)(nil)
