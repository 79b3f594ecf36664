package mocks

import (
	"errors"
	"sync"

	"github.com/user/framepump/pkg/ports"
)

// SeekCall records one Seek or SeekFrame call. MinTS and MaxTS equal TS for SeekFrame.
type SeekCall struct {
	Stream int
	MinTS  int64
	TS     int64
	MaxTS  int64
	Flags  ports.SeekFlags
	Frame  bool
}

// Source is a mock implementation of ports.Source. By default it serves
// Packets in order and seeks to the last packet of the stream at or before
// the target timestamp.
type Source struct {
	mu sync.Mutex

	FormatInfo ports.FormatInfo
	StreamList []ports.StreamInfo
	Packets    []ports.Packet
	// FinalErr replaces ErrEndOfInput once Packets are exhausted.
	FinalErr error

	FindStreamInfoFunc  func() error
	BestVideoStreamFunc func() (int, error)
	SeekFunc            func(stream int, minTS, ts, maxTS int64, flags ports.SeekFlags) error
	SeekFrameFunc       func(stream int, ts int64, flags ports.SeekFlags) error
	ReadPacketFunc      func(pkt *ports.Packet) error

	pos       int
	SeekCalls []SeekCall
	Reads     int
	Closes    int
}

// NewSource creates a mock Source with one video stream.
func NewSource(format ports.FormatInfo, stream ports.StreamInfo, packets []ports.Packet) *Source {
	stream.MediaType = ports.MediaTypeVideo
	return &Source{
		FormatInfo: format,
		StreamList: []ports.StreamInfo{stream},
		Packets:    packets,
	}
}

func (m *Source) FindStreamInfo() error {
	if m.FindStreamInfoFunc != nil {
		return m.FindStreamInfoFunc()
	}
	return nil
}

func (m *Source) Format() ports.FormatInfo {
	return m.FormatInfo
}

func (m *Source) Streams() []ports.StreamInfo {
	return m.StreamList
}

func (m *Source) BestVideoStream() (int, error) {
	if m.BestVideoStreamFunc != nil {
		return m.BestVideoStreamFunc()
	}
	for i, st := range m.StreamList {
		if st.MediaType == ports.MediaTypeVideo {
			return i, nil
		}
	}
	return -1, ports.ErrStreamNotFound
}

func (m *Source) Seek(stream int, minTS, ts, maxTS int64, flags ports.SeekFlags) error {
	m.mu.Lock()
	m.SeekCalls = append(m.SeekCalls, SeekCall{Stream: stream, MinTS: minTS, TS: ts, MaxTS: maxTS, Flags: flags})
	m.mu.Unlock()

	if m.SeekFunc != nil {
		if err := m.SeekFunc(stream, minTS, ts, maxTS, flags); err != nil {
			return err
		}
	}
	m.seekTo(stream, ts)
	return nil
}

func (m *Source) SeekFrame(stream int, ts int64, flags ports.SeekFlags) error {
	m.mu.Lock()
	m.SeekCalls = append(m.SeekCalls, SeekCall{Stream: stream, MinTS: ts, TS: ts, MaxTS: ts, Flags: flags, Frame: true})
	m.mu.Unlock()

	if m.SeekFrameFunc != nil {
		if err := m.SeekFrameFunc(stream, ts, flags); err != nil {
			return err
		}
	}
	m.seekTo(stream, ts)
	return nil
}

func (m *Source) seekTo(stream int, ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pos = 0
	for i, p := range m.Packets {
		if p.StreamIndex != stream {
			continue
		}
		t := p.PTS
		if t == ports.NoPTS {
			t = p.DTS
		}
		if t <= ts {
			m.pos = i
		}
	}
}

func (m *Source) ReadPacket(pkt *ports.Packet) error {
	m.mu.Lock()
	m.Reads++
	m.mu.Unlock()

	if m.ReadPacketFunc != nil {
		return m.ReadPacketFunc(pkt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.Packets) {
		if m.FinalErr != nil {
			return m.FinalErr
		}
		return ports.ErrEndOfInput
	}
	p := m.Packets[m.pos]
	m.pos++

	pkt.StreamIndex = p.StreamIndex
	pkt.PTS = p.PTS
	pkt.DTS = p.DTS
	pkt.Keyframe = p.Keyframe
	pkt.Data = append(pkt.Data[:0], p.Data...)
	return nil
}

func (m *Source) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	return nil
}

// Rewind moves the read cursor back to the first packet.
func (m *Source) Rewind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = 0
}

var _ ports.Source = (*Source)(nil)

// ErrOpen is the default error of a Demuxer without a Source.
var ErrOpen = errors.New("mocks: no such file")

// Demuxer is a mock implementation of ports.Demuxer. Every Open rewinds and returns Source.
type Demuxer struct {
	mu sync.Mutex

	Source   *Source
	OpenFunc func(path string) (ports.Source, error)

	OpenCalls []string
	LogLevels []ports.LogLevel
}

// NewDemuxer creates a mock Demuxer serving src.
func NewDemuxer(src *Source) *Demuxer {
	return &Demuxer{Source: src}
}

func (m *Demuxer) Open(path string) (ports.Source, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, path)
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	if m.Source == nil {
		return nil, ErrOpen
	}
	m.Source.Rewind()
	return m.Source, nil
}

func (m *Demuxer) SetEngineLogLevel(level ports.LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogLevels = append(m.LogLevels, level)
}

var (
	_ ports.Demuxer        = (*Demuxer)(nil)
	_ ports.LogLevelSetter = (*Demuxer)(nil)
)
