// Package probe opens a container, resolves its streams and reports the raw
// metadata of the best video stream. Every call opens and closes its own source.
package probe

import (
	"errors"
	"fmt"

	"github.com/user/framepump/pkg/ports"
)

// ErrNoVideoStream is returned by Result.Video when the container has no usable video stream.
var ErrNoVideoStream = errors.New("probe: no video stream")

// Stage names the step of probing that failed.
type Stage string

const (
	StageOpen       Stage = "open"
	StageStreamInfo Stage = "stream info"
)

// ProbeError reports a container that could not be opened or whose streams could not be resolved.
type ProbeError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Result is the metadata of one probed container.
type Result struct {
	Path   string
	Format ports.FormatInfo
	// Stream is the selected video stream, nil when there is none.
	Stream *ports.StreamInfo
	// Streams counts all elementary streams in the container.
	Streams int
}

// Video returns the selected video stream.
func (r *Result) Video() (ports.StreamInfo, error) {
	if r.Stream == nil {
		return ports.StreamInfo{}, ErrNoVideoStream
	}
	return *r.Stream, nil
}

// ContainerSeconds returns the container duration in seconds, or false when unknown.
func (r *Result) ContainerSeconds() (float64, bool) {
	d := r.Format.Duration
	if d == ports.NoPTS || d <= 0 {
		return 0, false
	}
	return float64(d) / ports.TimeBase, true
}

// Probe opens path with d and returns its metadata.
func Probe(d ports.Demuxer, path string) (*Result, error) {
	var res *Result
	err := With(d, path, func(src ports.Source, r *Result) error {
		res = r
		return nil
	})
	return res, err
}

// With opens path, resolves its streams and calls fn with the open source.
// The source is closed when fn returns.
func With(d ports.Demuxer, path string, fn func(src ports.Source, r *Result) error) error {
	src, err := d.Open(path)
	if err != nil {
		return &ProbeError{Path: path, Stage: StageOpen, Err: err}
	}
	defer src.Close()

	if err := src.FindStreamInfo(); err != nil {
		return &ProbeError{Path: path, Stage: StageStreamInfo, Err: err}
	}

	streams := src.Streams()
	res := &Result{
		Path:    path,
		Format:  src.Format(),
		Streams: len(streams),
	}
	if idx, err := src.BestVideoStream(); err == nil && idx >= 0 && idx < len(streams) {
		st := streams[idx]
		res.Stream = &st
	}

	return fn(src, res)
}
