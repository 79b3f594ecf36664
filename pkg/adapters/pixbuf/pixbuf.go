// Package pixbuf provides reference-counted, lockable BGRA pixel buffers in Go memory.
// It plays the role of a platform image-buffer allocator for the decode pump.
package pixbuf

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/user/framepump/pkg/ports"
)

// rowAlignment mirrors the 64-byte row alignment of platform image buffers.
const rowAlignment = 64

var (
	// ErrInvalidSize is returned when a buffer with a non-positive dimension is requested.
	ErrInvalidSize = errors.New("pixbuf: invalid buffer size")

	// ErrUnsupportedFormat is returned for any pixel format other than BGRA.
	ErrUnsupportedFormat = errors.New("pixbuf: unsupported pixel format")

	// ErrReleased is returned when locking a buffer whose last reference was dropped.
	ErrReleased = errors.New("pixbuf: buffer already released")
)

// Allocator allocates BGRA buffers and recycles released backing memory per size.
type Allocator struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
}

// NewAllocator creates a new Allocator.
func NewAllocator() *Allocator {
	return &Allocator{pools: make(map[image.Point]*sync.Pool)}
}

// Allocate returns a zeroed BGRA buffer with a reference count of one.
func (a *Allocator) Allocate(width, height int, format ports.PixelFormat) (ports.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if format != ports.PixelFormatBGRA {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	stride := alignRow(width * 4)
	pool := a.pool(width, height)

	var data []byte
	if v := pool.Get(); v != nil {
		data = *(v.(*[]byte))
		clear(data)
	} else {
		data = make([]byte, stride*height)
	}

	b := &Buffer{
		width:  width,
		height: height,
		stride: stride,
		data:   data,
		pool:   pool,
	}
	b.refs.Store(1)
	return b, nil
}

func (a *Allocator) pool(width, height int) *sync.Pool {
	key := image.Pt(width, height)

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pools[key]
	if !ok {
		p = &sync.Pool{}
		a.pools[key] = p
	}
	return p
}

func alignRow(n int) int {
	return (n + rowAlignment - 1) / rowAlignment * rowAlignment
}

// Buffer is a packed BGRA buffer.
type Buffer struct {
	width  int
	height int
	stride int

	mu    sync.Mutex
	locks int
	data  []byte
	pool  *sync.Pool

	refs atomic.Int32
}

func (b *Buffer) Width() int                     { return b.width }
func (b *Buffer) Height() int                    { return b.height }
func (b *Buffer) PixelFormat() ports.PixelFormat { return ports.PixelFormatBGRA }
func (b *Buffer) BytesPerRow() int               { return b.stride }

// Lock makes the backing memory addressable. Locks nest.
func (b *Buffer) Lock() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return ErrReleased
	}
	b.locks++
	return nil
}

// Unlock ends one Lock.
func (b *Buffer) Unlock() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locks > 0 {
		b.locks--
	}
}

// BaseAddress returns the backing memory while the buffer is locked.
func (b *Buffer) BaseAddress() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locks == 0 {
		return nil
	}
	return b.data
}

// Retain increments the reference count.
func (b *Buffer) Retain() ports.PixelBuffer {
	b.refs.Add(1)
	return b
}

// Release decrements the reference count. The memory is recycled when it reaches zero.
func (b *Buffer) Release() {
	if b.refs.Add(-1) != 0 {
		return
	}

	b.mu.Lock()
	data := b.data
	b.data = nil
	b.locks = 0
	b.mu.Unlock()

	if data != nil && b.pool != nil {
		b.pool.Put(&data)
	}
}

// RefCount returns the current reference count.
func (b *Buffer) RefCount() int {
	return int(b.refs.Load())
}

// ToRGBA copies a BGRA pixel buffer into a new RGBA image.
func ToRGBA(pb ports.PixelBuffer) (*image.RGBA, error) {
	if pb.PixelFormat() != ports.PixelFormatBGRA {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, pb.PixelFormat())
	}
	if err := pb.Lock(); err != nil {
		return nil, err
	}
	defer pb.Unlock()

	src := pb.BaseAddress()
	stride := pb.BytesPerRow()
	w, h := pb.Width(), pb.Height()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		s := src[y*stride : y*stride+w*4]
		d := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			d[x] = s[x+2]
			d[x+1] = s[x+1]
			d[x+2] = s[x]
			d[x+3] = s[x+3]
		}
	}
	return img, nil
}

// Ensure Allocator implements ports.BufferAllocator
var _ ports.BufferAllocator = (*Allocator)(nil)
