// Package pump turns the push-based packet stream of a container into a
// pull-based sequence of decoded BGRA frames.
//
// A Session reads packets of the best video stream, feeds them to the decoder
// and receives pictures until the decoder reports it is drained. Sessions are
// synchronous and not safe for concurrent use.
package pump

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/user/framepump/pkg/ports"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	StateCreated State = iota
	// StateReading pulls packets from the source.
	StateReading
	// StateDraining flushes frames buffered inside the decoder after end of input.
	StateDraining
	// StateDone is reached once the decoder is drained.
	StateDone
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReading:
		return "reading"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Deps are the collaborators of a Session. Logger may be nil.
type Deps struct {
	Demuxer    ports.Demuxer
	Decoders   ports.DecoderFactory
	Converters ports.ConverterFactory
	Buffers    ports.BufferAllocator
	Logger     ports.Logger
}

// Info describes an opened session.
type Info struct {
	Width    int
	Height   int
	TimeBase ports.Rational
	// Duration is the container duration, else the stream duration, in seconds.
	Duration mo.Option[float64]
	Codec    string
}

// Frame is one decoded picture. The caller owns Buffer and must Release it.
type Frame struct {
	Buffer ports.PixelBuffer
	// PTS is the presentation time in seconds, None when the decoder gave no timestamp.
	PTS mo.Option[float64]
	// Index counts frames produced by the session, from zero.
	Index int
}

// Option configures Open.
type Option func(*options)

type options struct {
	engineLogLevel ports.LogLevel
	setEngineLog   bool
}

// WithEngineLogLevel overrides the engine log verbosity applied at open (error by default).
func WithEngineLogLevel(level ports.LogLevel) Option {
	return func(o *options) {
		o.engineLogLevel = level
	}
}

// WithoutEngineLogLevel leaves the engine log verbosity untouched.
func WithoutEngineLogLevel() Option {
	return func(o *options) {
		o.setEngineLog = false
	}
}

// Session is an open decode pump.
type Session struct {
	id         string
	path       string
	state      State
	info       Info
	stream     ports.StreamInfo
	converters ports.ConverterFactory
	buffers    ports.BufferAllocator
	logger     ports.Logger

	src     ports.Source
	dec     ports.Decoder
	conv    ports.Converter
	frame   ports.Frame
	pkt     *ports.Packet
	pending bool

	produced int
}

// Open opens path, selects its best video stream and opens a decoder for it.
// Every acquired resource is released when Open fails.
func Open(path string, deps Deps, opts ...Option) (s *Session, info Info, err error) {
	o := options{engineLogLevel: ports.LevelError, setEngineLog: true}
	for _, opt := range opts {
		opt(&o)
	}

	log := deps.Logger
	if log == nil {
		log = ports.NopLogger{}
	}
	log = log.WithComponent("pump")

	if deps.Demuxer == nil || deps.Decoders == nil || deps.Converters == nil || deps.Buffers == nil {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrOpenFailure, Err: errors.New("incomplete dependencies")}
	}
	if setter, ok := deps.Demuxer.(ports.LogLevelSetter); ok && o.setEngineLog {
		setter.SetEngineLogLevel(o.engineLogLevel)
	}

	src, err := deps.Demuxer.Open(path)
	if err != nil {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrOpenFailure, Err: err}
	}
	defer func() {
		if err != nil {
			src.Close()
		}
	}()

	if err := src.FindStreamInfo(); err != nil {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrOpenFailure, Err: fmt.Errorf("stream info: %w", err)}
	}

	idx, err := src.BestVideoStream()
	streams := src.Streams()
	if err != nil {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrNoVideoStream, Err: err}
	}
	if idx < 0 || idx >= len(streams) {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrNoVideoStream, Err: fmt.Errorf("stream index %d out of range", idx)}
	}
	stream := streams[idx]

	dec, err := deps.Decoders.NewDecoder(src, stream)
	if err != nil {
		return nil, Info{}, &OpenError{Path: path, Kind: ErrDecoderUnavailable, Err: err}
	}

	info = Info{
		Width:    dec.Width(),
		Height:   dec.Height(),
		TimeBase: stream.TimeBase,
		Duration: openDuration(src.Format(), stream),
		Codec:    stream.CodecName,
	}

	s = &Session{
		id:         uuid.NewString(),
		path:       path,
		state:      StateCreated,
		info:       info,
		stream:     stream,
		converters: deps.Converters,
		buffers:    deps.Buffers,
		logger:     log,
		src:        src,
		dec:        dec,
		frame:      dec.AllocFrame(),
		pkt:        &ports.Packet{},
	}
	s.pkt.Unref()

	log.Debug("Session %s opened %s: %s %dx%d, time base %d/%d", s.id, path, stream.CodecName, info.Width, info.Height, stream.TimeBase.Num, stream.TimeBase.Den)
	return s, info, nil
}

func openDuration(format ports.FormatInfo, st ports.StreamInfo) mo.Option[float64] {
	if format.Duration != ports.NoPTS && format.Duration > 0 {
		return mo.Some(float64(format.Duration) / ports.TimeBase)
	}
	if st.Duration != ports.NoPTS && st.Duration > 0 && st.TimeBase.Valid() {
		return mo.Some(float64(st.Duration) * st.TimeBase.Float64())
	}
	return mo.None[float64]()
}

// ID returns the session identifier used in log messages.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Info returns what Open reported.
func (s *Session) Info() Info { return s.info }

// Stream returns the metadata of the decoded stream.
func (s *Session) Stream() ports.StreamInfo { return s.stream }

// Produced returns the number of frames returned so far.
func (s *Session) Produced() int { return s.produced }

// NextFrame returns the next decoded frame. It returns io.EOF once the
// decoder is drained, and again on every later call.
func (s *Session) NextFrame() (*Frame, error) {
	switch s.state {
	case StateClosed:
		return nil, ErrClosed
	case StateDone:
		return nil, io.EOF
	}

	if s.conv == nil {
		conv, err := s.converters.NewConverter(
			s.dec.Width(), s.dec.Height(), s.dec.PixelFormat(),
			s.info.Width, s.info.Height, ports.PixelFormatBGRA,
		)
		if err != nil {
			return nil, &ConvertSetupError{Err: err}
		}
		s.conv = conv
	}
	if s.state == StateCreated {
		s.state = StateReading
	}

	for {
		if err := s.feed(); err != nil {
			return nil, err
		}

		err := s.dec.ReceiveFrame(s.frame)
		switch {
		case err == nil:
			return s.emit()
		case errors.Is(err, ports.ErrNeedMoreInput):
			continue
		case errors.Is(err, ports.ErrDrained):
			s.state = StateDone
			s.logger.Debug("Session %s drained after %d frames", s.id, s.produced)
			return nil, io.EOF
		default:
			return nil, &DecodeError{Op: OpReceive, Err: err}
		}
	}
}

// feed pushes at most one packet, or the end-of-input marker, into the decoder.
func (s *Session) feed() error {
	if s.state == StateDraining {
		return s.flush()
	}

	if s.pending {
		return s.send()
	}

	for {
		s.pkt.Unref()
		err := s.src.ReadPacket(s.pkt)
		switch {
		case errors.Is(err, ports.ErrEndOfInput):
			s.pkt.Unref()
			s.state = StateDraining
			s.logger.Debug("Session %s reached end of input", s.id)
			return s.flush()
		case err != nil:
			s.pkt.Unref()
			return &ReadError{Err: err}
		case s.pkt.StreamIndex != s.stream.Index:
			continue
		default:
			return s.send()
		}
	}
}

// send feeds the current packet. A decoder that is full keeps the packet
// pending until a frame has been received.
func (s *Session) send() error {
	err := s.dec.SendPacket(s.pkt)
	if errors.Is(err, ports.ErrNeedMoreInput) {
		s.pending = true
		return nil
	}
	s.pending = false
	s.pkt.Unref()
	if err != nil {
		return &DecodeError{Op: OpSend, Err: err}
	}
	return nil
}

func (s *Session) flush() error {
	err := s.dec.SendPacket(nil)
	if err == nil || errors.Is(err, ports.ErrNeedMoreInput) || errors.Is(err, ports.ErrDrained) {
		return nil
	}
	return &DecodeError{Op: OpFlush, Err: err}
}

// emit converts the received picture into a new caller-owned buffer.
func (s *Session) emit() (*Frame, error) {
	defer s.frame.Unref()

	buf, err := s.buffers.Allocate(s.info.Width, s.info.Height, ports.PixelFormatBGRA)
	if err != nil {
		return nil, &BufferAllocError{Err: err}
	}
	if err := s.convertInto(buf); err != nil {
		buf.Release()
		return nil, err
	}

	pts := mo.None[float64]()
	if ts := s.frame.BestEffortTimestamp(); ts != ports.NoPTS && s.stream.TimeBase.Valid() {
		pts = mo.Some(float64(ts) * s.stream.TimeBase.Float64())
	}

	f := &Frame{Buffer: buf, PTS: pts, Index: s.produced}
	s.produced++
	return f, nil
}

func (s *Session) convertInto(buf ports.PixelBuffer) error {
	if err := buf.Lock(); err != nil {
		return &BufferAllocError{Err: fmt.Errorf("lock: %w", err)}
	}
	defer buf.Unlock()

	if err := s.conv.Convert(s.frame, buf.BaseAddress(), buf.BytesPerRow()); err != nil {
		return &ConvertError{Err: err}
	}
	return nil
}

// Close releases the converter, frame, packet, decoder and source, in that
// order. Closing a nil or already closed session does nothing.
func (s *Session) Close() error {
	if s == nil || s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	if s.conv != nil {
		s.conv.Close()
		s.conv = nil
	}
	if s.frame != nil {
		s.frame.Free()
		s.frame = nil
	}
	if s.pkt != nil {
		s.pkt.Unref()
		s.pkt = nil
	}

	var errs []error
	if s.dec != nil {
		errs = append(errs, s.dec.Close())
		s.dec = nil
	}
	if s.src != nil {
		errs = append(errs, s.src.Close())
		s.src = nil
	}

	s.logger.Debug("Session %s closed after %d frames", s.id, s.produced)
	return errors.Join(errs...)
}
