package ports

import (
	"errors"
	"math"
	"math/big"
)

// TimeBase is the number of container-level duration units per second.
const TimeBase = 1000000

// NoPTS marks an absent timestamp or duration.
const NoPTS int64 = math.MinInt64

var (
	// ErrEndOfInput is returned by Source.ReadPacket when no packets remain.
	ErrEndOfInput = errors.New("ports: end of input")

	// ErrStreamNotFound is returned by Source.BestVideoStream when the container has no video stream.
	ErrStreamNotFound = errors.New("ports: stream not found")

	// ErrSeekFailed is returned when a seek target cannot be satisfied.
	ErrSeekFailed = errors.New("ports: seek failed")
)

// Rational is a fraction, typically seconds per tick or frames per second.
type Rational struct {
	Num int
	Den int
}

// Valid reports whether both terms are strictly positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the value of r, or 0 when the denominator is zero.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Rescale converts a from units of from to units of to, rounding to nearest.
func Rescale(a int64, from, to Rational) int64 {
	if from.Den == 0 || to.Num == 0 {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(int64(from.Num)*int64(to.Den)))
	den := big.NewInt(int64(from.Den) * int64(to.Num))
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	// round half away from zero
	if new(big.Int).Mul(m.Abs(m), big.NewInt(2)).Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	if !q.IsInt64() {
		if q.Sign() < 0 {
			return math.MinInt64 + 1
		}
		return math.MaxInt64
	}
	return q.Int64()
}

// MediaType classifies an elementary stream.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeSubtitle
	MediaTypeData
)

// String returns the string representation of the media type.
func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// FormatInfo holds container-level metadata.
type FormatInfo struct {
	FormatName string
	// Duration is in TimeBase units; NoPTS or <= 0 when unknown.
	Duration int64
	// BitRate is in bits per second; 0 when unknown.
	BitRate int64
	// Size is the byte size of the underlying input; <= 0 when unknown.
	Size int64
}

// StreamInfo holds the metadata of one elementary stream.
type StreamInfo struct {
	Index     int
	MediaType MediaType
	TimeBase  Rational
	// Duration is in TimeBase ticks of the stream; NoPTS when unknown.
	Duration     int64
	NbFrames     int64
	AvgFrameRate Rational
	RFrameRate   Rational
	CodecName    string
	// CodecTag is the container fourcc, first character in the lowest byte.
	CodecTag    uint32
	Width       int
	Height      int
	PixelFormat PixelFormat
}

// SeekFlags modify seek behavior.
type SeekFlags int

const (
	// SeekBackward selects the nearest seek point at or before the target.
	SeekBackward SeekFlags = 1 << iota
	// SeekAny allows seeking to non-key packets.
	SeekAny
)

// Has reports whether flag is set.
func (f SeekFlags) Has(flag SeekFlags) bool { return f&flag == flag }

// Packet is one compressed access unit read from a Source. It is reused across reads.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Keyframe    bool
	Data        []byte
}

// Unref clears the packet so it can be reused for the next read.
func (p *Packet) Unref() {
	p.StreamIndex = -1
	p.PTS = NoPTS
	p.DTS = NoPTS
	p.Keyframe = false
	p.Data = p.Data[:0]
}

// Demuxer opens containers.
type Demuxer interface {
	// Open opens path read-only. The returned Source must be closed by the caller.
	Open(path string) (Source, error)
}

// Source is an opened container.
type Source interface {
	// FindStreamInfo resolves stream metadata. It must succeed before any other call.
	FindStreamInfo() error

	// Format returns container-level metadata.
	Format() FormatInfo

	// Streams returns metadata for every elementary stream, indexed by stream index.
	Streams() []StreamInfo

	// BestVideoStream returns the index of the preferred video stream, or ErrStreamNotFound.
	BestVideoStream() (int, error)

	// Seek positions the read cursor on a seek point of stream whose timestamp
	// lies within [minTS, maxTS], as close as possible to ts.
	Seek(stream int, minTS, ts, maxTS int64, flags SeekFlags) error

	// SeekFrame positions the read cursor on the seek point of stream nearest to ts.
	SeekFrame(stream int, ts int64, flags SeekFlags) error

	// ReadPacket reads the next packet in demux order into pkt.
	// It returns ErrEndOfInput when no packets remain.
	ReadPacket(pkt *Packet) error

	// Close releases the container.
	Close() error
}

// LogLevelSetter is implemented by engines with process-wide log verbosity.
type LogLevelSetter interface {
	SetEngineLogLevel(level LogLevel)
}
