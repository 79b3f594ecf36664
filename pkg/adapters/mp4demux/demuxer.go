// Package mp4demux provides a pure-Go MP4/MOV demuxer implementing ports.Demuxer.
// Progressive files are indexed from their sample tables and read on demand;
// fragmented files are indexed from their moof boxes.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/ports"
)

// formatName matches the libavformat demuxer name for the ISO family.
const formatName = "mov,mp4,m4a,3gp,3g2,mj2"

var (
	// ErrNotMP4 is returned when the input has no movie box.
	ErrNotMP4 = errors.New("mp4demux: not an mp4 file")

	// ErrNotReady is returned when the source is used before FindStreamInfo.
	ErrNotReady = errors.New("mp4demux: stream info not resolved")
)

// Demuxer opens MP4 files on an afero filesystem.
type Demuxer struct {
	fs afero.Fs
}

// New creates a Demuxer over the host filesystem.
func New() *Demuxer {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a Demuxer over fs.
func NewWithFs(fs afero.Fs) *Demuxer {
	return &Demuxer{fs: fs}
}

// Open opens path and parses its box structure.
func (d *Demuxer) Open(path string) (ports.Source, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotMP4, path)
	}

	parsed, err := decode(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Source{
		file:   f,
		size:   st.Size(),
		parsed: parsed,
	}, nil
}

// decode parses box structure lazily. Fragmented files are re-read in full
// because their samples are only reachable through moof data.
func decode(f afero.File) (*mp4.File, error) {
	parsed, err := mp4.DecodeFile(f, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if movie(parsed) == nil {
		return nil, ErrNotMP4
	}
	if !parsed.IsFragmented() {
		return parsed, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	parsed, err = mp4.DecodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("decode fragmented mp4: %w", err)
	}
	return parsed, nil
}

func movie(f *mp4.File) *mp4.MoovBox {
	if f.Moov != nil {
		return f.Moov
	}
	if f.Init != nil {
		return f.Init.Moov
	}
	return nil
}

// sample is one entry of a track's sample table.
type sample struct {
	offset int64
	size   int64
	dts    int64
	pts    int64
	sync   bool
	// data is set for fragmented files only.
	data []byte
}

type track struct {
	info    ports.StreamInfo
	samples []sample

	// shift is the edit list media time subtracted from every timestamp.
	shift int64
}

// entry addresses one sample in demux order.
type entry struct {
	track  int
	sample int
}

// Source is an opened MP4 file.
type Source struct {
	file   afero.File
	size   int64
	parsed *mp4.File

	ready  bool
	format ports.FormatInfo
	tracks []*track
	order  []entry
	pos    int
}

// FindStreamInfo builds the per-track sample index. It is idempotent.
func (s *Source) FindStreamInfo() error {
	if s.ready {
		return nil
	}

	moov := movie(s.parsed)
	for i, trak := range moov.Traks {
		t, err := buildTrack(i, trak)
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		s.tracks = append(s.tracks, t)
	}

	if s.parsed.IsFragmented() {
		if err := s.indexFragments(moov); err != nil {
			return err
		}
	}

	for _, t := range s.tracks {
		finishTrack(t)
	}

	s.format = s.buildFormat(moov)
	s.buildOrder()
	s.ready = true
	return nil
}

func (s *Source) indexFragments(moov *mp4.MoovBox) error {
	byID := make(map[uint32]*track, len(s.tracks))
	for i, trak := range moov.Traks {
		if trak.Tkhd != nil {
			byID[trak.Tkhd.TrackID] = s.tracks[i]
		}
	}

	trexs := make(map[uint32]*mp4.TrexBox)
	if moov.Mvex != nil {
		for _, trex := range moov.Mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	for _, seg := range s.parsed.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || frag.Moof.Traf == nil || frag.Moof.Traf.Tfhd == nil {
				continue
			}
			trackID := frag.Moof.Traf.Tfhd.TrackID
			t, ok := byID[trackID]
			if !ok {
				continue
			}

			samples, err := frag.GetFullSamples(trexs[trackID])
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			for _, fs := range samples {
				dts := int64(fs.DecodeTime) - t.shift
				t.samples = append(t.samples, sample{
					offset: -1,
					size:   int64(len(fs.Data)),
					dts:    dts,
					pts:    dts + int64(fs.CompositionTimeOffset),
					sync:   fs.Flags&nonSyncSampleFlag == 0,
					data:   fs.Data,
				})
			}
		}
	}
	return nil
}

// nonSyncSampleFlag is sample_is_non_sync_sample in trun/trex sample flags.
const nonSyncSampleFlag = 0x00010000

func (s *Source) buildFormat(moov *mp4.MoovBox) ports.FormatInfo {
	info := ports.FormatInfo{
		FormatName: formatName,
		Duration:   ports.NoPTS,
		Size:       s.size,
	}

	switch {
	case moov.Mvhd != nil && moov.Mvhd.Duration > 0 && moov.Mvhd.Timescale > 0:
		info.Duration = ports.Rescale(int64(moov.Mvhd.Duration),
			ports.Rational{Num: 1, Den: int(moov.Mvhd.Timescale)},
			ports.Rational{Num: 1, Den: ports.TimeBase})
	case moov.Mvex != nil && moov.Mvex.Mehd != nil && moov.Mvex.Mehd.FragmentDuration > 0 && moov.Mvhd != nil && moov.Mvhd.Timescale > 0:
		info.Duration = ports.Rescale(moov.Mvex.Mehd.FragmentDuration,
			ports.Rational{Num: 1, Den: int(moov.Mvhd.Timescale)},
			ports.Rational{Num: 1, Den: ports.TimeBase})
	default:
		longest := lo.Max(lo.FilterMap(s.tracks, func(t *track, _ int) (int64, bool) {
			if t.info.Duration == ports.NoPTS || !t.info.TimeBase.Valid() {
				return 0, false
			}
			return ports.Rescale(t.info.Duration, t.info.TimeBase, ports.Rational{Num: 1, Den: ports.TimeBase}), true
		}))
		if longest > 0 {
			info.Duration = longest
		}
	}

	if info.Duration > 0 && info.Duration != ports.NoPTS && s.size > 0 {
		info.BitRate = ports.Rescale(s.size*8, ports.Rational{Num: 1, Den: 1},
			ports.Rational{Num: int(info.Duration), Den: ports.TimeBase})
	}
	return info
}

// buildOrder interleaves all samples by decode time, then by stream index.
func (s *Source) buildOrder() {
	s.order = s.order[:0]
	for ti, t := range s.tracks {
		for si := range t.samples {
			s.order = append(s.order, entry{track: ti, sample: si})
		}
	}

	us := ports.Rational{Num: 1, Den: ports.TimeBase}
	slices.SortStableFunc(s.order, func(a, b entry) int {
		ta, tb := s.tracks[a.track], s.tracks[b.track]
		sa, sb := ta.samples[a.sample], tb.samples[b.sample]
		if sa.offset >= 0 && sb.offset >= 0 {
			switch {
			case sa.offset < sb.offset:
				return -1
			case sa.offset > sb.offset:
				return 1
			}
			return 0
		}
		da := ports.Rescale(sa.dts, ta.info.TimeBase, us)
		db := ports.Rescale(sb.dts, tb.info.TimeBase, us)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return a.track - b.track
	})
}

// Format returns container-level metadata.
func (s *Source) Format() ports.FormatInfo {
	return s.format
}

// Streams returns metadata for every track.
func (s *Source) Streams() []ports.StreamInfo {
	return lo.Map(s.tracks, func(t *track, _ int) ports.StreamInfo {
		return t.info
	})
}

// BestVideoStream returns the video track with the largest picture, first wins on ties.
func (s *Source) BestVideoStream() (int, error) {
	if !s.ready {
		return -1, ErrNotReady
	}
	videos := lo.Filter(s.tracks, func(t *track, _ int) bool {
		return t.info.MediaType == ports.MediaTypeVideo && len(t.samples) > 0
	})
	if len(videos) == 0 {
		return -1, ports.ErrStreamNotFound
	}
	best := lo.MaxBy(videos, func(a, b *track) bool {
		return a.info.Width*a.info.Height > b.info.Width*b.info.Height
	})
	return best.info.Index, nil
}

// Seek positions the cursor on the seek point of stream closest to ts
// within [minTS, maxTS], preferring points at or before ts.
func (s *Source) Seek(stream int, minTS, ts, maxTS int64, flags ports.SeekFlags) error {
	if !s.ready {
		return ErrNotReady
	}
	if stream < 0 || stream >= len(s.tracks) {
		return fmt.Errorf("%w: stream %d", ports.ErrStreamNotFound, stream)
	}
	if minTS > ts || ts > maxTS {
		return fmt.Errorf("%w: invalid range [%d, %d] around %d", ports.ErrSeekFailed, minTS, maxTS, ts)
	}

	t := s.tracks[stream]
	target := -1
	for i, smp := range t.samples {
		if !smp.sync && !flags.Has(ports.SeekAny) {
			continue
		}
		if smp.pts > ts {
			if target < 0 && smp.pts <= maxTS {
				target = i
			}
			break
		}
		if smp.pts >= minTS {
			target = i
		}
	}
	if target < 0 {
		return fmt.Errorf("%w: no seek point for %d in stream %d", ports.ErrSeekFailed, ts, stream)
	}
	return s.moveTo(stream, target)
}

// SeekFrame positions the cursor near ts. With SeekBackward the seek point is
// at or before ts; timestamps before the first sample snap to it.
func (s *Source) SeekFrame(stream int, ts int64, flags ports.SeekFlags) error {
	if !s.ready {
		return ErrNotReady
	}
	if stream < 0 || stream >= len(s.tracks) {
		return fmt.Errorf("%w: stream %d", ports.ErrStreamNotFound, stream)
	}
	t := s.tracks[stream]
	if len(t.samples) == 0 {
		return fmt.Errorf("%w: stream %d is empty", ports.ErrSeekFailed, stream)
	}

	if flags.Has(ports.SeekBackward) {
		if ts < t.samples[0].pts {
			ts = t.samples[0].pts
		}
		return s.Seek(stream, math.MinInt64, ts, ts, flags)
	}
	return s.Seek(stream, ts, ts, math.MaxInt64, flags)
}

func (s *Source) moveTo(stream, sampleIdx int) error {
	idx := slices.IndexFunc(s.order, func(e entry) bool {
		return e.track == stream && e.sample == sampleIdx
	})
	if idx < 0 {
		return fmt.Errorf("%w: sample %d not indexed", ports.ErrSeekFailed, sampleIdx)
	}
	s.pos = idx
	return nil
}

// ReadPacket reads the next sample into pkt.
func (s *Source) ReadPacket(pkt *ports.Packet) error {
	if !s.ready {
		return ErrNotReady
	}
	if s.pos >= len(s.order) {
		return ports.ErrEndOfInput
	}
	e := s.order[s.pos]
	s.pos++

	smp := s.tracks[e.track].samples[e.sample]
	pkt.StreamIndex = e.track
	pkt.PTS = smp.pts
	pkt.DTS = smp.dts
	pkt.Keyframe = smp.sync

	if smp.data != nil {
		pkt.Data = append(pkt.Data[:0], smp.data...)
		return nil
	}

	if cap(pkt.Data) < int(smp.size) {
		pkt.Data = make([]byte, smp.size)
	}
	pkt.Data = pkt.Data[:smp.size]
	n, err := s.file.ReadAt(pkt.Data, smp.offset)
	if n < len(pkt.Data) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read sample at %d: %w", smp.offset, err)
	}
	return nil
}

// Close closes the underlying file.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Ensure Demuxer implements ports.Demuxer
var _ ports.Demuxer = (*Demuxer)(nil)
