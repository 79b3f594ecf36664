package main

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/ffmpegengine"
	"github.com/user/framepump/pkg/adapters/ggrenderer"
	"github.com/user/framepump/pkg/adapters/goconverter"
	"github.com/user/framepump/pkg/adapters/mjpegdecoder"
	"github.com/user/framepump/pkg/adapters/mp4demux"
	"github.com/user/framepump/pkg/adapters/pixbuf"
	"github.com/user/framepump/pkg/config"
	"github.com/user/framepump/pkg/orchestrator"
	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/pump"
	"github.com/user/framepump/pkg/stages/composite"
	"github.com/user/framepump/pkg/stages/estimate"
	"github.com/user/framepump/pkg/stages/frames"
	"github.com/user/framepump/pkg/stages/identify"
	"github.com/user/framepump/pkg/stages/layout"
	"github.com/user/framepump/pkg/stages/probe"
)

// engine bundles the adapters a command decodes with.
type engine struct {
	name string
	deps pump.Deps
}

// newEngine assembles the adapters for name. The mp4 engine reads from fs.
// "ffmpeg" falls back to mp4 when the binary was built without libav.
func newEngine(name string, fs afero.Fs, log ports.Logger) (engine, error) {
	if name == "ffmpeg" && !ffmpegengine.Available {
		log.Warn("FFmpeg engine is not compiled in, using the mp4 engine")
		name = "mp4"
	}

	switch name {
	case "ffmpeg":
		e := ffmpegengine.New()
		return engine{name: name, deps: pump.Deps{
			Demuxer:    e,
			Decoders:   e,
			Converters: e,
			Buffers:    pixbuf.NewAllocator(),
			Logger:     log,
		}}, nil
	case "mp4":
		return engine{name: name, deps: pump.Deps{
			Demuxer:    mp4demux.NewWithFs(fs),
			Decoders:   mjpegdecoder.NewFactory(),
			Converters: goconverter.NewFactory(),
			Buffers:    pixbuf.NewAllocator(),
			Logger:     log,
		}}, nil
	default:
		return engine{}, fmt.Errorf("unknown engine %q", name)
	}
}

// newOrchestrator wires every stage over the engine. sink receives saved frames
// and contact sheets.
func (e engine) newOrchestrator(cfg config.Config, sink ports.FrameSink, log ports.Logger) *orchestrator.Orchestrator {
	renderer := ggrenderer.New()

	var opts []pump.Option
	if cfg.Level() == ports.LevelDebug {
		opts = append(opts, pump.WithEngineLogLevel(ports.LevelDebug))
	}

	return orchestrator.New(
		probe.NewStage(e.deps.Demuxer, log),
		estimate.NewStage(e.deps.Demuxer, log),
		identify.NewStage(e.deps.Demuxer, log),
		frames.NewStage(e.deps, renderer, sink, log, opts...),
		layout.NewStage(),
		composite.NewStage(renderer, log, cfg.Workers),
		sink,
		log,
	)
}
