// Package summarizer provides report generation for inspection results.
package summarizer

import (
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/orchestrator"
)

// Summary contains the reports of every inspected file.
type Summary struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Files       []FileReport `json:"files"`
}

// FileReport is the inspection of one file. Error is set when probing failed.
type FileReport struct {
	Path      string        `json:"path"`
	Error     string        `json:"error,omitempty"`
	Container ContainerInfo `json:"container"`
	Video     *VideoInfo    `json:"video,omitempty"`
	Durations DurationInfo  `json:"durations"`
	Codec     CodecInfo     `json:"codec"`
	Decode    *DecodeInfo   `json:"decode,omitempty"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// ContainerInfo contains the container level metadata.
type ContainerInfo struct {
	Format   string             `json:"format"`
	Duration mo.Option[float64] `json:"duration"`
	BitRate  int64              `json:"bit_rate"`
	Size     int64              `json:"size"`
	Streams  int                `json:"streams"`
}

// VideoInfo describes the selected video stream.
type VideoInfo struct {
	Index       int                `json:"index"`
	Codec       string             `json:"codec"`
	Tag         string             `json:"tag"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	PixelFormat string             `json:"pixel_format"`
	TimeBase    string             `json:"time_base"`
	Frames      int64              `json:"frames"`
	AverageFPS  mo.Option[float64] `json:"average_fps"`
}

// DurationInfo contains every duration estimate in seconds.
type DurationInfo struct {
	Fast          mo.Option[float64] `json:"fast"`
	FrameAccurate mo.Option[float64] `json:"frame_accurate"`
	FormatOnly    mo.Option[float64] `json:"format_only"`
	Precise       mo.Option[float64] `json:"precise"`
}

// CodecInfo is the codec identification verdict.
type CodecInfo struct {
	Target  string `json:"target"`
	Verdict string `json:"verdict"`
}

// DecodeInfo summarizes a full decode.
type DecodeInfo struct {
	Frames       int                `json:"frames"`
	Width        int                `json:"width"`
	Height       int                `json:"height"`
	FirstPTS     mo.Option[float64] `json:"first_pts"`
	LastPTS      mo.Option[float64] `json:"last_pts"`
	UnknownPTS   int                `json:"unknown_pts"`
	Saved        int                `json:"saved"`
	ContactSheet bool               `json:"contact_sheet"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithGeneratedAt overrides the generation time.
func (b *Builder) WithGeneratedAt(t time.Time) *Builder {
	b.summary.GeneratedAt = t
	return b
}

// AddRun adds the report of a completed inspection.
func (b *Builder) AddRun(r orchestrator.RunResult) *Builder {
	b.summary.Files = append(b.summary.Files, FromRun(r))
	return b
}

// AddError adds the report of a file that could not be inspected.
func (b *Builder) AddError(path string, err error) *Builder {
	b.summary.Files = append(b.summary.Files, FileReport{
		Path:  path,
		Error: err.Error(),
		Codec: CodecInfo{Verdict: codecid.Indeterminate.String()},
	})
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

// FromRun converts an inspection result into a report.
func FromRun(r orchestrator.RunResult) FileReport {
	report := FileReport{
		Path: r.Path,
		Container: ContainerInfo{
			Format:   r.Probe.FormatName,
			Duration: r.Probe.Duration,
			BitRate:  r.Probe.BitRate,
			Size:     r.Probe.Size,
			Streams:  r.Probe.Streams,
		},
		Durations: DurationInfo{
			Fast:          r.Estimates.Fast,
			FrameAccurate: r.Estimates.FrameAccurate,
			FormatOnly:    r.Estimates.FormatOnly,
			Precise:       r.Estimates.Precise,
		},
		Codec: CodecInfo{
			Target:  r.Codec.Target.Name,
			Verdict: r.Codec.Verdict.String(),
		},
		ElapsedMs: r.Elapsed.Milliseconds(),
	}

	if r.Probe.HasVideo {
		st := r.Probe.Video
		report.Video = &VideoInfo{
			Index:       st.Index,
			Codec:       st.CodecName,
			Tag:         codecid.TagString(st.CodecTag),
			Width:       st.Width,
			Height:      st.Height,
			PixelFormat: string(st.PixelFormat),
			TimeBase:    fmt.Sprintf("%d/%d", st.TimeBase.Num, st.TimeBase.Den),
			Frames:      st.NbFrames,
			AverageFPS:  r.Estimates.AverageFPS,
		}
	}

	if f := r.Frames; f != nil {
		report.Decode = &DecodeInfo{
			Frames:       f.Count,
			Width:        f.Width,
			Height:       f.Height,
			FirstPTS:     f.FirstPTS,
			LastPTS:      f.LastPTS,
			UnknownPTS:   f.UnknownPTS,
			Saved:        f.Saved,
			ContactSheet: r.ContactSheet,
		}
	}
	return report
}

// Failed returns the number of files that could not be inspected.
func (s *Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}
