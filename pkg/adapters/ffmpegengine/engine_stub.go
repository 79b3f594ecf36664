//go:build !ffmpeg

// Package ffmpegengine provides the libav-backed demuxer, decoders and pixel
// converter via go-astiav. Build with -tags ffmpeg and FFmpeg development libraries.
package ffmpegengine

import (
	"errors"

	"github.com/user/framepump/pkg/ports"
)

// Available reports whether the engine was compiled in.
const Available = false

// ErrNotCompiled is returned by every operation when built without the ffmpeg tag.
var ErrNotCompiled = errors.New("ffmpegengine: built without -tags ffmpeg")

// Engine is a placeholder that fails every operation.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) SetEngineLogLevel(ports.LogLevel) {}

func (e *Engine) Open(string) (ports.Source, error) {
	return nil, ErrNotCompiled
}

func (e *Engine) NewDecoder(ports.Source, ports.StreamInfo) (ports.Decoder, error) {
	return nil, ErrNotCompiled
}

func (e *Engine) NewConverter(int, int, ports.PixelFormat, int, int, ports.PixelFormat) (ports.Converter, error) {
	return nil, ErrNotCompiled
}

var (
	_ ports.Demuxer          = (*Engine)(nil)
	_ ports.DecoderFactory   = (*Engine)(nil)
	_ ports.ConverterFactory = (*Engine)(nil)
	_ ports.LogLevelSetter   = (*Engine)(nil)
)
