// Package goconverter provides a pure-Go pixel converter for frames that carry a Go image.
package goconverter

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/user/framepump/pkg/ports"
)

var (
	// ErrUnsupportedFormat is returned for pixel formats the converter cannot read or write.
	ErrUnsupportedFormat = errors.New("goconverter: unsupported pixel format")

	// ErrInvalidSize is returned for non-positive dimensions.
	ErrInvalidSize = errors.New("goconverter: invalid size")

	// ErrNotImageFrame is returned when the source frame does not expose an image.
	ErrNotImageFrame = errors.New("goconverter: frame has no image")

	// ErrShortBuffer is returned when the destination cannot hold the output.
	ErrShortBuffer = errors.New("goconverter: destination buffer too small")
)

var sourceFormats = map[ports.PixelFormat]bool{
	ports.PixelFormatYUV420P:  true,
	ports.PixelFormatYUVJ420P: true,
	ports.PixelFormatYUV422P:  true,
	ports.PixelFormatYUVJ422P: true,
	ports.PixelFormatYUV444P:  true,
	ports.PixelFormatYUVJ444P: true,
	ports.PixelFormatGray:     true,
	ports.PixelFormatRGBA:     true,
	ports.PixelFormatBGRA:     true,
}

// Factory creates converters.
type Factory struct {
	// Scaler is used when source and destination sizes differ. Defaults to bilinear.
	Scaler xdraw.Scaler
}

// NewFactory creates a Factory using bilinear scaling.
func NewFactory() *Factory {
	return &Factory{Scaler: xdraw.BiLinear}
}

// NewConverter returns a converter writing packed RGBA or BGRA.
func (f *Factory) NewConverter(srcW, srcH int, srcFmt ports.PixelFormat, dstW, dstH int, dstFmt ports.PixelFormat) (ports.Converter, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d -> %dx%d", ErrInvalidSize, srcW, srcH, dstW, dstH)
	}
	if !sourceFormats[srcFmt] {
		return nil, fmt.Errorf("%w: source %q", ErrUnsupportedFormat, srcFmt)
	}
	if dstFmt != ports.PixelFormatBGRA && dstFmt != ports.PixelFormatRGBA {
		return nil, fmt.Errorf("%w: destination %q", ErrUnsupportedFormat, dstFmt)
	}

	scaler := f.Scaler
	if scaler == nil {
		scaler = xdraw.BiLinear
	}
	return &Converter{
		srcW:   srcW,
		srcH:   srcH,
		dstW:   dstW,
		dstH:   dstH,
		swapRB: dstFmt == ports.PixelFormatBGRA,
		scaler: scaler,
	}, nil
}

// Converter draws frame images into packed 32-bit buffers.
type Converter struct {
	srcW, srcH int
	dstW, dstH int
	swapRB     bool
	scaler     xdraw.Scaler
}

// Convert writes src into dst.
func (c *Converter) Convert(src ports.Frame, dst []byte, dstStride int) error {
	frame, ok := src.(ports.ImageFrame)
	if !ok || frame.Image() == nil {
		return ErrNotImageFrame
	}
	if dstStride < c.dstW*4 || len(dst) < dstStride*(c.dstH-1)+c.dstW*4 {
		return fmt.Errorf("%w: %d bytes with stride %d for %dx%d", ErrShortBuffer, len(dst), dstStride, c.dstW, c.dstH)
	}

	out := &image.RGBA{
		Pix:    dst,
		Stride: dstStride,
		Rect:   image.Rect(0, 0, c.dstW, c.dstH),
	}

	img := frame.Image()
	if img.Bounds().Dx() == c.dstW && img.Bounds().Dy() == c.dstH {
		draw.Draw(out, out.Rect, img, img.Bounds().Min, draw.Src)
	} else {
		c.scaler.Scale(out, out.Rect, img, img.Bounds(), draw.Src, nil)
	}

	if c.swapRB {
		swapRedBlue(out)
	}
	return nil
}

func swapRedBlue(img *image.RGBA) {
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; x += 4 {
			row[x], row[x+2] = row[x+2], row[x]
		}
	}
}

// Close is a no-op.
func (c *Converter) Close() {}

// Ensure Factory implements ports.ConverterFactory
var _ ports.ConverterFactory = (*Factory)(nil)
