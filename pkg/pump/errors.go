package pump

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenFailure is returned when the path is unreadable, not a container, or its streams cannot be resolved.
	ErrOpenFailure = errors.New("pump: open failed")

	// ErrNoVideoStream is returned when the container has no usable video stream.
	ErrNoVideoStream = errors.New("pump: no video stream")

	// ErrDecoderUnavailable is returned when no decoder can be opened for the video codec.
	ErrDecoderUnavailable = errors.New("pump: decoder unavailable")

	// ErrClosed is returned by NextFrame after Close.
	ErrClosed = errors.New("pump: session closed")
)

// OpenError reports a failed Open. It matches both its Kind sentinel and the underlying cause.
type OpenError struct {
	Path string
	Kind error
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("open %s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ReadError reports a packet read failure other than end of input.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "pump: read packet: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// DecodeOp names the decoder call that failed.
type DecodeOp string

const (
	OpSend    DecodeOp = "send packet"
	OpFlush   DecodeOp = "flush"
	OpReceive DecodeOp = "receive frame"
)

// DecodeError reports a decoder rejecting input or failing to produce output.
type DecodeError struct {
	Op  DecodeOp
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("pump: %s: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// ConvertSetupError reports a converter that could not be constructed.
type ConvertSetupError struct {
	Err error
}

func (e *ConvertSetupError) Error() string { return "pump: converter setup: " + e.Err.Error() }
func (e *ConvertSetupError) Unwrap() error { return e.Err }

// ConvertError reports a failed conversion of one decoded frame.
type ConvertError struct {
	Err error
}

func (e *ConvertError) Error() string { return "pump: convert: " + e.Err.Error() }
func (e *ConvertError) Unwrap() error { return e.Err }

// BufferAllocError reports an output buffer that could not be allocated or locked.
type BufferAllocError struct {
	Err error
}

func (e *BufferAllocError) Error() string { return "pump: buffer: " + e.Err.Error() }
func (e *BufferAllocError) Unwrap() error { return e.Err }
