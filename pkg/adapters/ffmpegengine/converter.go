//go:build ffmpeg

package ffmpegengine

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/user/framepump/pkg/ports"
)

// ErrUnknownPixelFormat is returned for pixel format names libav does not know.
var ErrUnknownPixelFormat = errors.New("ffmpegengine: unknown pixel format")

func pixelFormat(p astiav.PixelFormat) ports.PixelFormat {
	if p == astiav.PixelFormatNone {
		return ports.PixelFormatNone
	}
	return ports.PixelFormat(p.String())
}

func avPixelFormat(p ports.PixelFormat) (astiav.PixelFormat, error) {
	if p == ports.PixelFormatBGRA {
		return astiav.PixelFormatBgra, nil
	}
	f := astiav.FindPixelFormatByName(string(p))
	if f == astiav.PixelFormatNone {
		return f, fmt.Errorf("%w: %q", ErrUnknownPixelFormat, p)
	}
	return f, nil
}

// NewConverter creates a swscale context.
func (e *Engine) NewConverter(srcW, srcH int, srcFmt ports.PixelFormat, dstW, dstH int, dstFmt ports.PixelFormat) (ports.Converter, error) {
	sp, err := avPixelFormat(srcFmt)
	if err != nil {
		return nil, err
	}
	dp, err := avPixelFormat(dstFmt)
	if err != nil {
		return nil, err
	}

	ssc, err := astiav.CreateSoftwareScaleContext(srcW, srcH, sp, dstW, dstH, dp, astiav.NewSoftwareScaleContextFlags())
	if err != nil {
		return nil, fmt.Errorf("create software scale context (%dx%d %s -> %dx%d %s): %w",
			srcW, srcH, srcFmt, dstW, dstH, dstFmt, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(dstW)
	dst.SetHeight(dstH)
	dst.SetPixelFormat(dp)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return nil, fmt.Errorf("alloc destination buffer: %w", err)
	}

	return &Converter{ssc: ssc, dst: dst, rowBytes: dstW * 4, height: dstH}, nil
}

// Converter scales AVFrames into packed caller buffers.
type Converter struct {
	ssc      *astiav.SoftwareScaleContext
	dst      *astiav.Frame
	packed   []byte
	rowBytes int
	height   int
}

// Convert scales src and copies the result row by row into dst.
func (c *Converter) Convert(src ports.Frame, dst []byte, dstStride int) error {
	frame, ok := src.(*Frame)
	if !ok {
		return fmt.Errorf("ffmpegengine: unexpected frame type %T", src)
	}
	if err := c.ssc.ScaleFrame(frame.f, c.dst); err != nil {
		return fmt.Errorf("scale frame: %w", err)
	}

	n, err := c.dst.ImageBufferSize(1)
	if err != nil {
		return fmt.Errorf("image buffer size: %w", err)
	}
	if cap(c.packed) < n {
		c.packed = make([]byte, n)
	}
	c.packed = c.packed[:n]
	if _, err := c.dst.ImageCopyToBuffer(c.packed, 1); err != nil {
		return fmt.Errorf("image copy to buffer: %w", err)
	}

	for y := 0; y < c.height; y++ {
		copy(dst[y*dstStride:y*dstStride+c.rowBytes], c.packed[y*c.rowBytes:(y+1)*c.rowBytes])
	}
	return nil
}

// Close frees the scale context and its destination frame.
func (c *Converter) Close() {
	if c.dst != nil {
		c.dst.Free()
		c.dst = nil
	}
	if c.ssc != nil {
		c.ssc.Free()
		c.ssc = nil
	}
}

// Ensure Engine implements ports.ConverterFactory
var _ ports.ConverterFactory = (*Engine)(nil)
