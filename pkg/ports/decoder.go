package ports

import (
	"errors"
	"image"
)

var (
	// ErrNeedMoreInput means the decoder cannot produce output until more input is sent
	// (or, from SendPacket, that output must be received first).
	ErrNeedMoreInput = errors.New("ports: decoder needs more input")

	// ErrDrained means the decoder has been flushed and every buffered frame was returned.
	ErrDrained = errors.New("ports: decoder fully drained")

	// ErrDecoderNotFound is returned when no decoder is registered for a codec.
	ErrDecoderNotFound = errors.New("ports: decoder not found")
)

// PixelFormat names a raw pixel layout, using libav naming (e.g. "yuv420p", "bgra").
type PixelFormat string

const (
	PixelFormatNone     PixelFormat = ""
	PixelFormatYUV420P  PixelFormat = "yuv420p"
	PixelFormatYUVJ420P PixelFormat = "yuvj420p"
	PixelFormatYUV422P  PixelFormat = "yuv422p"
	PixelFormatYUVJ422P PixelFormat = "yuvj422p"
	PixelFormatYUV444P  PixelFormat = "yuv444p"
	PixelFormatYUVJ444P PixelFormat = "yuvj444p"
	PixelFormatGray     PixelFormat = "gray"
	PixelFormatRGBA     PixelFormat = "rgba"
	PixelFormatBGRA     PixelFormat = "bgra"
)

// Frame is a decoded picture owned by a decoder.
type Frame interface {
	Width() int
	Height() int
	PixelFormat() PixelFormat

	// BestEffortTimestamp returns the decoder's presentation time estimate in stream ticks, or NoPTS.
	BestEffortTimestamp() int64

	// Unref drops the frame's reference to its picture so the decoder can reuse it.
	Unref()

	// Free releases the frame itself.
	Free()
}

// ImageFrame is implemented by frames backed by a Go image.
type ImageFrame interface {
	Frame
	Image() image.Image
}

// DecoderFactory constructs decoders for streams of an opened Source.
type DecoderFactory interface {
	// NewDecoder opens a decoder bound to the codec parameters of stream.
	// It returns an error wrapping ErrDecoderNotFound when no decoder exists for the codec.
	NewDecoder(src Source, stream StreamInfo) (Decoder, error)
}

// Decoder is a two-phase push/pull video decoder.
type Decoder interface {
	// Width and Height report the coded picture size.
	Width() int
	Height() int
	PixelFormat() PixelFormat

	// AllocFrame returns a reusable frame for ReceiveFrame.
	AllocFrame() Frame

	// SendPacket feeds one packet. A nil packet signals end of input and starts draining.
	SendPacket(pkt *Packet) error

	// ReceiveFrame fills f with the next decoded picture. It returns ErrNeedMoreInput
	// when more packets are required and ErrDrained once draining has completed.
	ReceiveFrame(f Frame) error

	// Close releases the decoder.
	Close() error
}
