// Package identify implements the codec identification stage.
package identify

import (
	"context"

	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/pipeline"
	"github.com/user/framepump/pkg/ports"
)

// Stage checks the video codec of a container against a target.
type Stage struct {
	identifier *codecid.Identifier
}

// NewStage creates a new identify stage.
func NewStage(demuxer ports.Demuxer, logger ports.Logger) *Stage {
	return &Stage{identifier: codecid.New(demuxer, logger)}
}

// Execute identifies input.Target. An empty target means NotchLC.
func (s *Stage) Execute(ctx context.Context, input pipeline.IdentifyInput) (pipeline.IdentifyResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.IdentifyResult{}, err
	}
	target := input.Target
	if target == (codecid.Target{}) {
		target = codecid.NotchLC
	}
	return pipeline.IdentifyResult{
		Target:  target,
		Verdict: s.identifier.Identify(input.Path, target),
	}, nil
}
