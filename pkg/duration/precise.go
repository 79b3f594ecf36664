package duration

import (
	"context"
	"errors"
	"math"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/ports"
	"github.com/user/framepump/pkg/probe"
)

var errSeekToEnd = errors.New("duration: no seek to end succeeded")

var microseconds = ports.Rational{Num: 1, Den: ports.TimeBase}

// Precise seeks near the end of the video stream and scans forward for the
// last timestamp, widening the look-back window until one is found. It falls
// back to the stream duration and then the container duration.
func (e *Estimator) Precise(ctx context.Context, path string) mo.Option[float64] {
	if path == "" {
		return mo.None[float64]()
	}

	result := mo.None[float64]()
	err := probe.With(e.demuxer, path, func(src ports.Source, res *probe.Result) error {
		st, err := res.Video()
		if err != nil {
			result = containerDuration(res)
			return nil
		}

		last, found := e.scanTail(ctx, src, res.Format, st)
		switch {
		case found && st.TimeBase.Valid():
			result = positive(float64(last) * st.TimeBase.Float64())
			e.logger.Debug("Precise duration of %s from last timestamp %d", path, last)
		default:
			result = streamDuration(res)
			if result.IsAbsent() {
				result = containerDuration(res)
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Debug("Probe failed: %s", err)
		return mo.None[float64]()
	}
	return result
}

// scanTail returns the last timestamp of stream st found by the windowed tail scan.
func (e *Estimator) scanTail(ctx context.Context, src ports.Source, format ports.FormatInfo, st ports.StreamInfo) (int64, bool) {
	for _, window := range e.windows {
		if ctx.Err() != nil {
			return 0, false
		}
		if err := seekToEnd(src, format, st); err != nil {
			e.logger.Debug("Seek to end failed: %s", err)
			break
		}
		if window > 0 {
			e.stepBack(src, format, st, window)
		}
		if last, ok := e.lastTimestamp(ctx, src, st.Index); ok {
			return last, true
		}
		e.logger.Debug("No timestamp within %.0fs window", window)
	}
	return 0, false
}

// seekToEnd positions src on the last seek point of the stream, trying the
// range seek first and then frame seeks to progressively safer targets.
func seekToEnd(src ports.Source, format ports.FormatInfo, st ports.StreamInfo) error {
	if src.Seek(st.Index, math.MinInt64, math.MaxInt64, math.MaxInt64, ports.SeekBackward) == nil {
		return nil
	}
	if format.Duration > 0 {
		ts := ports.Rescale(format.Duration-1, microseconds, st.TimeBase)
		if src.SeekFrame(st.Index, ts, ports.SeekBackward) == nil {
			return nil
		}
	}
	if st.Duration != ports.NoPTS && st.Duration > 0 {
		if src.SeekFrame(st.Index, st.Duration-1, ports.SeekBackward) == nil {
			return nil
		}
	}
	if src.SeekFrame(st.Index, 0, ports.SeekBackward) == nil {
		return nil
	}
	return errSeekToEnd
}

// stepBack moves the read position window seconds before the end of the stream.
// A failed seek leaves the position at the end.
func (e *Estimator) stepBack(src ports.Source, format ports.FormatInfo, st ports.StreamInfo, window float64) {
	var step int64 = 1
	if tb := st.TimeBase.Float64(); tb > 0 {
		if s := int64(window / tb); s > 0 {
			step = s
		}
	}

	var end int64
	switch {
	case format.Duration > 0:
		end = ports.Rescale(format.Duration, microseconds, st.TimeBase)
	case st.Duration != ports.NoPTS:
		end = st.Duration
	default:
		return
	}

	target := end - step
	if target < 0 {
		target = 0
	}
	if err := src.SeekFrame(st.Index, target, ports.SeekBackward); err != nil {
		e.logger.Debug("Step back to %d failed: %s", target, err)
	}
}

// lastTimestamp reads forward and returns the timestamp of the last packet of stream.
func (e *Estimator) lastTimestamp(ctx context.Context, src ports.Source, stream int) (int64, bool) {
	var (
		pkt   ports.Packet
		last  int64
		found bool
	)
	for n := 0; n < e.scanLimit; n++ {
		if ctx.Err() != nil {
			break
		}
		pkt.Unref()
		if err := src.ReadPacket(&pkt); err != nil {
			if !errors.Is(err, ports.ErrEndOfInput) {
				e.logger.Debug("Read stopped: %s", err)
			}
			break
		}
		if pkt.StreamIndex != stream {
			continue
		}
		ts := pkt.PTS
		if ts == ports.NoPTS {
			ts = pkt.DTS
		}
		if ts != ports.NoPTS {
			last = ts
			found = true
		}
	}
	return last, found
}
