// Package probe implements the container probe stage.
package probe

import (
	"context"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/probe"
)

// Stage reads the container and stream metadata.
type Stage struct {
	demuxer ports.Demuxer
	logger  ports.Logger
}

// NewStage creates a new probe stage.
func NewStage(demuxer ports.Demuxer, logger ports.Logger) *Stage {
	return &Stage{
		demuxer: demuxer,
		logger:  logger.WithComponent("probe"),
	}
}

// Execute probes input.Path. A container without video is not an error.
func (s *Stage) Execute(ctx context.Context, input pipeline.ProbeInput) (pipeline.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.ProbeResult{}, err
	}

	res, err := probe.Probe(s.demuxer, input.Path)
	if err != nil {
		s.logger.Debug("Probe failed: %s", err)
		return pipeline.ProbeResult{}, err
	}

	out := pipeline.ProbeResult{
		Path:       res.Path,
		FormatName: res.Format.FormatName,
		Duration:   mo.None[float64](),
		BitRate:    res.Format.BitRate,
		Size:       res.Format.Size,
		Streams:    res.Streams,
	}
	if d, ok := res.ContainerSeconds(); ok {
		out.Duration = mo.Some(d)
	}
	if st, err := res.Video(); err == nil {
		out.Video = st
		out.HasVideo = true
		s.logger.Debug("Probed %s: %s %dx%d", input.Path, st.CodecName, st.Width, st.Height)
	} else {
		s.logger.Debug("No video stream in %s", input.Path)
	}
	return out, nil
}
