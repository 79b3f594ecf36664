// Package estimate implements the duration and frame rate estimation stage.
package estimate

import (
	"context"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/duration"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
)

// Stage runs every duration estimator on one container.
type Stage struct {
	demuxer ports.Demuxer
	logger  ports.Logger
}

// NewStage creates a new estimate stage.
func NewStage(demuxer ports.Demuxer, logger ports.Logger) *Stage {
	return &Stage{
		demuxer: demuxer,
		logger:  logger,
	}
}

// Execute computes the estimates. Unknown values are None, never errors;
// only a cancelled context fails the stage.
func (s *Stage) Execute(ctx context.Context, input pipeline.EstimateInput) (pipeline.EstimateResult, error) {
	est := duration.New(s.demuxer,
		duration.WithLogger(s.logger),
		duration.WithWindows(input.Windows),
		duration.WithScanLimit(input.ScanLimit),
	)

	result := pipeline.EstimateResult{
		Fast:          est.Fast(input.Path),
		FrameAccurate: est.FrameAccurate(input.Path),
		FormatOnly:    est.FormatOnly(input.Path),
		Precise:       mo.None[float64](),
		AverageFPS:    est.AverageFPS(input.Path),
	}
	if input.Precise {
		result.Precise = est.Precise(ctx, input.Path)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
