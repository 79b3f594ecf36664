package ffmpegengine

import "github.com/user/framepump/pkg/ports"

// ptsGuesser picks a frame timestamp the way libavcodec fills
// best_effort_timestamp: the frame pts unless it has gone backwards more
// often than the packet dts, and the dts when no pts is set.
type ptsGuesser struct {
	faultyPTS int
	faultyDTS int
	lastPTS   int64
	lastDTS   int64
}

func newPTSGuesser() *ptsGuesser {
	return &ptsGuesser{lastPTS: ports.NoPTS, lastDTS: ports.NoPTS}
}

// guess records pts and dts of one decoded frame and returns its timestamp.
// Either value may be ports.NoPTS.
func (g *ptsGuesser) guess(pts, dts int64) int64 {
	if dts != ports.NoPTS {
		if g.lastDTS != ports.NoPTS && dts <= g.lastDTS {
			g.faultyDTS++
		}
		g.lastDTS = dts
	}
	if pts != ports.NoPTS {
		if g.lastPTS != ports.NoPTS && pts <= g.lastPTS {
			g.faultyPTS++
		}
		g.lastPTS = pts
	}

	if pts != ports.NoPTS && (g.faultyPTS <= g.faultyDTS || dts == ports.NoPTS) {
		return pts
	}
	return dts
}
