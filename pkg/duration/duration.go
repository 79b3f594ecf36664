// Package duration estimates the playback length of a container with tiered
// fallbacks, from header metadata up to seeking and scanning the stream tail.
//
// Every method opens and closes its own source and never returns an error:
// an unknown duration is mo.None, and a known one is always positive.
package duration

import (
	"math"
	"math/big"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/probe"
)

// DefaultScanLimit caps the packets read per look-back window.
const DefaultScanLimit = 10000

// DefaultWindows are the look-back windows, in seconds, tried by Precise.
var DefaultWindows = []float64{0, 5, 30}

// Estimator computes duration estimates through a demuxer.
type Estimator struct {
	demuxer   ports.Demuxer
	logger    ports.Logger
	windows   []float64
	scanLimit int
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger. Messages are logged under the "duration" component.
func WithLogger(l ports.Logger) Option {
	return func(e *Estimator) {
		e.logger = l.WithComponent("duration")
	}
}

// WithWindows overrides the look-back windows of Precise.
func WithWindows(windows []float64) Option {
	return func(e *Estimator) {
		if len(windows) > 0 {
			e.windows = append([]float64(nil), windows...)
		}
	}
}

// WithScanLimit overrides the per-window packet cap of Precise.
func WithScanLimit(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.scanLimit = n
		}
	}
}

// New creates an Estimator.
func New(d ports.Demuxer, opts ...Option) *Estimator {
	e := &Estimator{
		demuxer:   d,
		logger:    ports.NopLogger{},
		windows:   DefaultWindows,
		scanLimit: DefaultScanLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// tier is one step of a fallback chain.
type tier struct {
	name     string
	estimate func(*probe.Result) mo.Option[float64]
}

var fastTiers = []tier{
	{"container", containerDuration},
	{"stream", streamDuration},
	{"frame count", frameCountDuration},
	{"bit rate", bitRateDuration},
}

// Fast returns the first known of: container duration, stream duration,
// frame count over frame rate, and file size over bit rate.
func (e *Estimator) Fast(path string) mo.Option[float64] {
	return e.withResult(path, func(res *probe.Result) mo.Option[float64] {
		for _, t := range fastTiers {
			if d := t.estimate(res); d.IsPresent() {
				if t.name == "bit rate" {
					e.logger.Warn("Duration of %s estimated from bit rate", path)
				}
				e.logger.Debug("Fast duration of %s from %s: %.3fs", path, t.name, d.MustGet())
				return d
			}
		}
		return mo.None[float64]()
	})
}

// FrameAccurate returns frame count times frame period, else stream duration.
func (e *Estimator) FrameAccurate(path string) mo.Option[float64] {
	return e.withResult(path, func(res *probe.Result) mo.Option[float64] {
		st, err := res.Video()
		if err != nil {
			return mo.None[float64]()
		}
		rate := frameRate(st)
		if rate.Valid() && st.NbFrames > 0 {
			v, _ := new(big.Rat).SetFrac(
				new(big.Int).Mul(big.NewInt(st.NbFrames), big.NewInt(int64(rate.Den))),
				big.NewInt(int64(rate.Num)),
			).Float64()
			return positive(v)
		}
		return streamDuration(res)
	})
}

// FormatOnly returns the container duration with no stream-level fallback.
func (e *Estimator) FormatOnly(path string) mo.Option[float64] {
	return e.withResult(path, containerDuration)
}

// AverageFPS returns the average frame rate of the video stream, else its real frame rate.
func (e *Estimator) AverageFPS(path string) mo.Option[float64] {
	return e.withResult(path, func(res *probe.Result) mo.Option[float64] {
		st, err := res.Video()
		if err != nil {
			return mo.None[float64]()
		}
		rate := frameRate(st)
		if !rate.Valid() {
			return mo.None[float64]()
		}
		return positive(rate.Float64())
	})
}

func (e *Estimator) withResult(path string, fn func(*probe.Result) mo.Option[float64]) mo.Option[float64] {
	if path == "" {
		return mo.None[float64]()
	}
	res, err := probe.Probe(e.demuxer, path)
	if err != nil {
		e.logger.Debug("Probe failed: %s", err)
		return mo.None[float64]()
	}
	return fn(res)
}

func containerDuration(res *probe.Result) mo.Option[float64] {
	if secs, ok := res.ContainerSeconds(); ok {
		return positive(secs)
	}
	return mo.None[float64]()
}

func streamDuration(res *probe.Result) mo.Option[float64] {
	st, err := res.Video()
	if err != nil || st.Duration == ports.NoPTS || st.Duration <= 0 || !st.TimeBase.Valid() {
		return mo.None[float64]()
	}
	return positive(float64(st.Duration) * st.TimeBase.Float64())
}

func frameCountDuration(res *probe.Result) mo.Option[float64] {
	st, err := res.Video()
	if err != nil || st.NbFrames <= 0 {
		return mo.None[float64]()
	}
	rate := frameRate(st)
	if rate.Den <= 0 || rate.Float64() <= 0 {
		return mo.None[float64]()
	}
	return positive(float64(st.NbFrames) / rate.Float64())
}

func bitRateDuration(res *probe.Result) mo.Option[float64] {
	f := res.Format
	if f.BitRate <= 0 || f.Size <= 0 {
		return mo.None[float64]()
	}
	return positive(float64(f.Size*8) / float64(f.BitRate))
}

// frameRate prefers the average frame rate and falls back to the real one.
func frameRate(st ports.StreamInfo) ports.Rational {
	if st.AvgFrameRate.Num > 0 {
		return st.AvgFrameRate
	}
	return st.RFrameRate
}

func positive(v float64) mo.Option[float64] {
	if v > 0 && !math.IsInf(v, 0) {
		return mo.Some(v)
	}
	return mo.None[float64]()
}
