// Package frames implements the decode stage: it pumps every frame of a
// container, optionally saving frames and keeping thumbnails.
package frames

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/adapters/pixbuf"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/pump"
)

// Stage decodes a container to the end.
type Stage struct {
	deps     pump.Deps
	renderer ports.Renderer
	sink     ports.FrameSink
	logger   ports.Logger
	opts     []pump.Option
}

// NewStage creates a new frames stage. deps.Logger is replaced by logger.
func NewStage(deps pump.Deps, renderer ports.Renderer, sink ports.FrameSink, logger ports.Logger, opts ...pump.Option) *Stage {
	deps.Logger = logger
	return &Stage{
		deps:     deps,
		renderer: renderer,
		sink:     sink,
		logger:   logger.WithComponent("frames"),
		opts:     opts,
	}
}

// Execute pumps every frame of input.Path. Every buffer is released before
// the next frame is requested.
func (s *Stage) Execute(ctx context.Context, input pipeline.FramesInput) (pipeline.FramesResult, error) {
	session, info, err := pump.Open(input.Path, s.deps, s.opts...)
	if err != nil {
		return pipeline.FramesResult{}, err
	}
	defer session.Close()

	result := pipeline.FramesResult{
		Width:    info.Width,
		Height:   info.Height,
		Codec:    info.Codec,
		FirstPTS: mo.None[float64](),
		LastPTS:  mo.None[float64](),
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		frame, err := session.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("frame %d: %w", result.Count, err)
		}

		err = s.handle(frame, input, &result)
		frame.Buffer.Release()
		if err != nil {
			return result, err
		}
	}

	s.logger.Debug("Decoded %d frames of %s", result.Count, input.Path)
	return result, nil
}

func (s *Stage) handle(frame *pump.Frame, input pipeline.FramesInput, result *pipeline.FramesResult) error {
	result.Count++
	if pts, ok := frame.PTS.Get(); ok {
		if result.FirstPTS.IsAbsent() {
			result.FirstPTS = mo.Some(pts)
		}
		result.LastPTS = mo.Some(pts)
	} else {
		result.UnknownPTS++
	}

	save := input.SaveEvery > 0 && frame.Index%input.SaveEvery == 0 && s.sink.Enabled()
	thumb := input.ThumbEvery > 0 && frame.Index%input.ThumbEvery == 0
	if !save && !thumb {
		return nil
	}

	img, err := pixbuf.ToRGBA(frame.Buffer)
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame.Index, err)
	}

	if save {
		if err := s.sink.SaveFrame(frame.Index, frame.PTS, img); err != nil {
			return fmt.Errorf("save frame %d: %w", frame.Index, err)
		}
		result.Saved++
	}

	if thumb {
		width := input.ThumbWidth
		if width <= 0 {
			width = pipeline.DefaultLayoutInput().CellWidth
		}
		height := max(img.Bounds().Dy()*width/max(img.Bounds().Dx(), 1), 1)
		result.Thumbnails = append(result.Thumbnails, pipeline.Thumbnail{
			Index: frame.Index,
			PTS:   frame.PTS,
			Image: s.renderer.ResizeImage(img, width, height),
		})
	}
	return nil
}
