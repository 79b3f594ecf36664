package mp4demux

import (
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/samber/lo"

	"github.com/user/framepump/pkg/ports"
)

// buildTrack reads track metadata and, for progressive files, the sample table.
func buildTrack(index int, trak *mp4.TrakBox) (*track, error) {
	t := &track{
		info: ports.StreamInfo{
			Index:    index,
			Duration: ports.NoPTS,
		},
	}
	if trak.Mdia == nil {
		return t, nil
	}

	var handler ports.MediaType
	if trak.Mdia.Hdlr != nil {
		handler = handlerMediaType(trak.Mdia.Hdlr.HandlerType)
	}
	t.info.MediaType = handler
	t.info.CodecName = "none"

	if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Timescale > 0 {
		t.info.TimeBase = ports.Rational{Num: 1, Den: int(mdhd.Timescale)}
		if mdhd.Duration > 0 {
			t.info.Duration = int64(mdhd.Duration)
		}
	}

	t.shift = editShift(trak.Edts)

	if trak.Tkhd != nil {
		t.info.Width = int(uint32(trak.Tkhd.Width) >> 16)
		t.info.Height = int(uint32(trak.Tkhd.Height) >> 16)
	}

	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return t, nil
	}
	stbl := trak.Mdia.Minf.Stbl

	if stbl.Stsd != nil && len(stbl.Stsd.Children) > 0 {
		entry := stbl.Stsd.Children[0]
		fourcc := entry.Type()
		codec := lookupCodec(fourcc, handler)
		t.info.CodecName = codec.name
		t.info.CodecTag = fourccTag(fourcc)
		t.info.MediaType = codec.media
		t.info.PixelFormat = codec.pixfmt
		if vse, ok := entry.(*mp4.VisualSampleEntryBox); ok && vse.Width > 0 && vse.Height > 0 {
			t.info.Width = int(vse.Width)
			t.info.Height = int(vse.Height)
		}
	}

	if stbl.Stsz == nil || stbl.Stsz.SampleNumber == 0 {
		return t, nil
	}

	samples, err := readSampleTable(stbl, t.shift)
	if err != nil {
		return nil, err
	}
	t.samples = samples
	return t, nil
}

// editShift returns the media time at which presentation starts, taken from
// the first non-empty edit. Leading empty edits are ignored.
func editShift(edts *mp4.EdtsBox) int64 {
	if edts == nil {
		return 0
	}
	for _, elst := range edts.Elst {
		for _, e := range elst.Entries {
			if e.MediaTime >= 0 {
				return e.MediaTime
			}
		}
	}
	return 0
}

// readSampleTable resolves offset, size, timing and sync status for every
// sample. Timestamps are moved back by shift.
func readSampleTable(stbl *mp4.StblBox, shift int64) ([]sample, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}
	if stbl.Stco == nil && stbl.Co64 == nil {
		return nil, fmt.Errorf("no stco or co64 box")
	}

	count := stbl.Stsz.SampleNumber
	samples := make([]sample, 0, count)

	var syncSamples map[uint32]bool
	if stbl.Stss != nil {
		syncSamples = lo.SliceToMap(stbl.Stss.SampleNumber, func(nr uint32) (uint32, bool) {
			return nr, true
		})
	}

	deltas := expandStts(stbl.Stts, count)

	var (
		dts       = -shift
		prevChunk = -1
		offset    int64
	)
	for nr := uint32(1); nr <= count; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return nil, fmt.Errorf("get chunk nr: %w", err)
		}
		if chunkNr != prevChunk {
			off, err := chunkOffset(stbl, chunkNr)
			if err != nil {
				return nil, err
			}
			offset = off
			prevChunk = chunkNr
		}

		size := int64(stbl.Stsz.GetSampleSize(int(nr)))
		pts := dts
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}

		samples = append(samples, sample{
			offset: offset,
			size:   size,
			dts:    dts,
			pts:    pts,
			sync:   syncSamples == nil || syncSamples[nr],
		})

		offset += size
		dts += int64(deltas[nr-1])
	}
	return samples, nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (int64, error) {
	if stbl.Stco != nil {
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
		return int64(off), nil
	}
	if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
		return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
	}
	return int64(stbl.Co64.ChunkOffset[chunkNr-1]), nil
}

// expandStts returns one decode delta per sample. Missing entries repeat the last delta.
func expandStts(stts *mp4.SttsBox, count uint32) []uint32 {
	deltas := make([]uint32, 0, count)
	var last uint32
	if stts != nil {
		for i, n := range stts.SampleCount {
			last = stts.SampleTimeDelta[i]
			for j := uint32(0); j < n && uint32(len(deltas)) < count; j++ {
				deltas = append(deltas, last)
			}
		}
	}
	for uint32(len(deltas)) < count {
		deltas = append(deltas, last)
	}
	return deltas
}

// finishTrack derives duration and frame rates from the sample index.
func finishTrack(t *track) {
	n := len(t.samples)
	t.info.NbFrames = int64(n)
	if n == 0 || !t.info.TimeBase.Valid() {
		return
	}

	first, last := t.samples[0], t.samples[n-1]
	lastDelta := int64(0)
	if n > 1 {
		lastDelta = last.dts - t.samples[n-2].dts
	}
	span := last.dts + lastDelta - first.dts
	if t.info.Duration == ports.NoPTS && span > 0 {
		t.info.Duration = span
	}

	if t.info.MediaType != ports.MediaTypeVideo {
		return
	}

	timescale := int64(t.info.TimeBase.Den)
	if t.info.Duration > 0 {
		t.info.AvgFrameRate = reduce(int64(n)*timescale, t.info.Duration)
	}

	deltas := lo.CountValues(lo.FilterMap(t.samples[1:], func(s sample, i int) (int64, bool) {
		d := s.dts - t.samples[i].dts
		return d, d > 0
	}))
	if len(deltas) > 0 {
		common := lo.MaxBy(lo.Entries(deltas), func(a, b lo.Entry[int64, int]) bool {
			return a.Value > b.Value || (a.Value == b.Value && a.Key < b.Key)
		})
		t.info.RFrameRate = reduce(timescale, common.Key)
	}
}

func reduce(num, den int64) ports.Rational {
	g := gcd(num, den)
	if g == 0 {
		return ports.Rational{}
	}
	return ports.Rational{Num: int(num / g), Den: int(den / g)}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
