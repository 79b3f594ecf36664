package mocks

import (
	"errors"
	"sync"

	"github.com/user/framepump/pkg/ports"
)

// ConvertCall records the arguments of a NewConverter call.
type ConvertCall struct {
	SrcW, SrcH int
	SrcFmt     ports.PixelFormat
	DstW, DstH int
	DstFmt     ports.PixelFormat
}

// ConverterFactory is a mock implementation of ports.ConverterFactory.
type ConverterFactory struct {
	NewConverterFunc func(srcW, srcH int, srcFmt ports.PixelFormat, dstW, dstH int, dstFmt ports.PixelFormat) (ports.Converter, error)

	Calls     []ConvertCall
	Converter *Converter
}

func (m *ConverterFactory) NewConverter(srcW, srcH int, srcFmt ports.PixelFormat, dstW, dstH int, dstFmt ports.PixelFormat) (ports.Converter, error) {
	m.Calls = append(m.Calls, ConvertCall{srcW, srcH, srcFmt, dstW, dstH, dstFmt})
	if m.NewConverterFunc != nil {
		return m.NewConverterFunc(srcW, srcH, srcFmt, dstW, dstH, dstFmt)
	}
	if m.Converter == nil {
		m.Converter = &Converter{}
	}
	return m.Converter, nil
}

var _ ports.ConverterFactory = (*ConverterFactory)(nil)

// Converter is a mock implementation of ports.Converter. By default it fills
// dst with the low byte of the source frame timestamp.
type Converter struct {
	ConvertFunc func(src ports.Frame, dst []byte, dstStride int) error

	Converts int
	Closes   int
}

func (m *Converter) Convert(src ports.Frame, dst []byte, dstStride int) error {
	m.Converts++
	if m.ConvertFunc != nil {
		return m.ConvertFunc(src, dst, dstStride)
	}
	v := byte(src.BestEffortTimestamp())
	for i := range dst {
		dst[i] = v
	}
	return nil
}

func (m *Converter) Close() { m.Closes++ }

var _ ports.Converter = (*Converter)(nil)

// ErrNotLocked is returned by PixelBuffer.Unlock without a matching Lock.
var ErrNotLocked = errors.New("mocks: buffer not locked")

// PixelBuffer is a mock implementation of ports.PixelBuffer.
type PixelBuffer struct {
	mu sync.Mutex

	W, H   int
	Format ports.PixelFormat
	Data   []byte

	LockErr error
	Locks   int
	Unlocks int
	Refs    int
}

func (m *PixelBuffer) Width() int                     { return m.W }
func (m *PixelBuffer) Height() int                    { return m.H }
func (m *PixelBuffer) PixelFormat() ports.PixelFormat { return m.Format }
func (m *PixelBuffer) BytesPerRow() int               { return m.W * 4 }

func (m *PixelBuffer) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LockErr != nil {
		return m.LockErr
	}
	m.Locks++
	return nil
}

func (m *PixelBuffer) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unlocks++
}

func (m *PixelBuffer) BaseAddress() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Locks <= m.Unlocks {
		return nil
	}
	return m.Data
}

func (m *PixelBuffer) Retain() ports.PixelBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refs++
	return m
}

func (m *PixelBuffer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refs--
}

var _ ports.PixelBuffer = (*PixelBuffer)(nil)

// BufferAllocator is a mock implementation of ports.BufferAllocator.
type BufferAllocator struct {
	mu sync.Mutex

	AllocateFunc func(width, height int, format ports.PixelFormat) (ports.PixelBuffer, error)

	Buffers []*PixelBuffer
}

func (m *BufferAllocator) Allocate(width, height int, format ports.PixelFormat) (ports.PixelBuffer, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(width, height, format)
	}
	b := &PixelBuffer{
		W:      width,
		H:      height,
		Format: format,
		Data:   make([]byte, width*height*4),
		Refs:   1,
	}
	m.mu.Lock()
	m.Buffers = append(m.Buffers, b)
	m.mu.Unlock()
	return b, nil
}

var _ ports.BufferAllocator = (*BufferAllocator)(nil)
