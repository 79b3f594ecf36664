package ports

// ConverterFactory constructs pixel-format converters.
type ConverterFactory interface {
	// NewConverter returns a converter from srcFmt at srcW x srcH to dstFmt at dstW x dstH.
	NewConverter(srcW, srcH int, srcFmt PixelFormat, dstW, dstH int, dstFmt PixelFormat) (Converter, error)
}

// Converter scales and color-converts decoded frames.
type Converter interface {
	// Convert writes src into dst, a single packed plane with dstStride bytes per row.
	Convert(src Frame, dst []byte, dstStride int) error

	// Close releases the converter.
	Close()
}

// BufferAllocator allocates caller-owned pixel buffers.
type BufferAllocator interface {
	// Allocate returns a buffer with a reference count of one.
	Allocate(width, height int, format PixelFormat) (PixelBuffer, error)
}

// PixelBuffer is a reference-counted, lockable packed image buffer.
type PixelBuffer interface {
	Width() int
	Height() int
	PixelFormat() PixelFormat
	BytesPerRow() int

	// Lock makes the backing memory addressable through BaseAddress.
	Lock() error

	// Unlock ends a Lock. BaseAddress must not be used afterwards.
	Unlock()

	// BaseAddress returns the backing memory, or nil when the buffer is not locked.
	BaseAddress() []byte

	// Retain increments the reference count.
	Retain() PixelBuffer

	// Release decrements the reference count and frees the memory at zero.
	Release()
}
