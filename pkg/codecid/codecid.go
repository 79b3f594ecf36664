// Package codecid decides whether the video stream of a container uses a given codec.
package codecid

import (
	"strings"

	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/probe"
)

// Verdict is the tri-state result of an identification.
type Verdict int

const (
	// Indeterminate means the container could not be opened or has no video stream.
	Indeterminate Verdict = -1
	// NoMatch means the video stream uses another codec.
	NoMatch Verdict = 0
	// Match means the video stream uses the target codec.
	Match Verdict = 1
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case NoMatch:
		return "no match"
	default:
		return "indeterminate"
	}
}

// Target names a codec by its canonical name and by the fourcc some muxers tag it with.
type Target struct {
	Name   string
	AltTag string
}

// NotchLC is the NotchLC codec, tagged "nclc" in MOV files.
var NotchLC = Target{Name: "notchlc", AltTag: "nclc"}

// Identifier runs identifications through a demuxer.
type Identifier struct {
	demuxer ports.Demuxer
	logger  ports.Logger
}

// New creates an Identifier. A nil logger discards messages.
func New(d ports.Demuxer, log ports.Logger) *Identifier {
	if log == nil {
		log = ports.NopLogger{}
	}
	return &Identifier{demuxer: d, logger: log.WithComponent("codecid")}
}

// Identify reports whether the best video stream of path is target.
func (i *Identifier) Identify(path string, target Target) Verdict {
	if path == "" {
		return Indeterminate
	}
	res, err := probe.Probe(i.demuxer, path)
	if err != nil {
		i.logger.Debug("Probe failed: %s", err)
		return Indeterminate
	}
	st, err := res.Video()
	if err != nil {
		i.logger.Debug("No video stream in %s", path)
		return Indeterminate
	}

	if target.Name != "" && st.CodecName == target.Name {
		return Match
	}
	if target.AltTag != "" && st.CodecTag != 0 && TagString(st.CodecTag) == target.AltTag {
		i.logger.Debug("Matched %s by tag %q", path, target.AltTag)
		return Match
	}
	return NoMatch
}

// Identify reports whether the best video stream of path is target.
func Identify(d ports.Demuxer, path string, target Target) Verdict {
	return New(d, nil).Identify(path, target)
}

// IsNotchLC reports whether the best video stream of path is NotchLC.
func IsNotchLC(d ports.Demuxer, path string) Verdict {
	return Identify(d, path, NotchLC)
}

// TagString decodes a little-endian fourcc. Decoding stops at the first NUL byte.
func TagString(tag uint32) string {
	b := []byte{byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24)}
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}
