// Package mp4test writes small MP4 clips with JPEG samples for tests, either
// fragmented or progressive.
package mp4test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"slices"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/spf13/afero"
)

// Clip describes a generated clip.
type Clip struct {
	Width  int
	Height int
	FPS    int
	Frames int
	// FourCC is the sample entry type; "jpeg" when empty.
	FourCC string

	// Delay shifts composition times by this many frames and adds an edit
	// list whose media_time cancels the shift.
	Delay int

	// SamplesPerChunk groups progressive samples into chunks; 0 puts every
	// sample in its own chunk.
	SamplesPerChunk int
	// Co64 writes 64-bit chunk offsets in progressive files.
	Co64 bool
}

// TenSeconds is a 10 s, 30 fps clip.
var TenSeconds = Clip{Width: 64, Height: 48, FPS: 30, Frames: 300}

// Timescale returns the track timescale used for c.
func (c Clip) Timescale() uint32 {
	return uint32(c.FPS * 1000)
}

// FrameDuration returns the duration of one frame in Timescale units.
func (c Clip) FrameDuration() uint32 {
	return c.Timescale() / uint32(c.FPS)
}

func (c Clip) fourcc() (string, error) {
	if c.Frames <= 0 || c.FPS <= 0 || c.Width <= 0 || c.Height <= 0 || c.Delay < 0 {
		return "", fmt.Errorf("invalid clip %+v", c)
	}
	if c.FourCC == "" {
		return "jpeg", nil
	}
	return c.FourCC, nil
}

func (c Clip) frames() ([][]byte, error) {
	out := make([][]byte, 0, c.Frames)
	for i := 0; i < c.Frames; i++ {
		data, err := Frame(c.Width, c.Height, i)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// describe adds the sample entry and dimensions to trak.
func (c Clip) describe(trak *mp4.TrakBox, fourcc string) {
	entry := mp4.CreateVisualSampleEntryBox(fourcc, uint16(c.Width), uint16(c.Height), nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
	trak.Tkhd.Width = mp4.Fixed32(c.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(c.Height << 16)
}

// addEdit writes an edit list starting presentation at the delayed first
// frame. movieTimescale is the mvhd timescale.
func (c Clip) addEdit(trak *mp4.TrakBox, movieTimescale uint32) {
	if c.Delay == 0 {
		return
	}
	dur := uint64(c.FrameDuration())
	elst := &mp4.ElstBox{Entries: []mp4.ElstEntry{{
		SegmentDuration:  uint64(c.Frames) * dur * uint64(movieTimescale) / uint64(c.Timescale()),
		MediaTime:        int64(c.Delay) * int64(dur),
		MediaRateInteger: 1,
	}}}
	edts := &mp4.EdtsBox{}
	edts.AddChild(elst)
	edts.Elst = append(edts.Elst, elst)

	// edts goes between tkhd and mdia.
	trak.Edts = edts
	trak.Children = slices.Insert(trak.Children, 1, mp4.Box(edts))
}

// Build encodes c as a fragmented MP4 file.
func Build(c Clip) ([]byte, error) {
	fourcc, err := c.fourcc()
	if err != nil {
		return nil, err
	}
	frames, err := c.frames()
	if err != nil {
		return nil, err
	}

	timescale := c.Timescale()
	trackID := uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")
	trak := init.Moov.Trak
	c.describe(trak, fourcc)
	c.addEdit(trak, init.Moov.Mvhd.Timescale)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	dur := c.FrameDuration()
	for i, data := range frames {
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags:                 mp4.SyncSampleFlags,
				Size:                  uint32(len(data)),
				Dur:                   dur,
				CompositionTimeOffset: int32(c.Delay) * int32(dur),
			},
			DecodeTime: uint64(i) * uint64(dur),
			Data:       data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildProgressive encodes c as a progressive MP4 file laid out as ftyp, mdat
// and moov, with every sample addressed through the sample table.
func BuildProgressive(c Clip) ([]byte, error) {
	fourcc, err := c.fourcc()
	if err != nil {
		return nil, err
	}
	frames, err := c.frames()
	if err != nil {
		return nil, err
	}

	timescale := c.Timescale()
	dur := c.FrameDuration()
	total := uint64(c.Frames) * uint64(dur)

	per := c.SamplesPerChunk
	if per <= 0 {
		per = 1
	}
	per = min(per, c.Frames)

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	mdat := &mp4.MdatBox{}

	sizes := make([]uint32, 0, c.Frames)
	var offsets []uint64
	offset := ftyp.Size() + mdat.HeaderSize()
	for i, data := range frames {
		if i%per == 0 {
			offsets = append(offsets, offset)
		}
		mdat.AddSampleData(data)
		sizes = append(sizes, uint32(len(data)))
		offset += uint64(len(data))
	}

	moov := mp4.NewMoovBox()
	mvhd := mp4.CreateMvhd()
	mvhd.Timescale = timescale
	mvhd.Duration = total
	moov.AddChild(mvhd)

	trak := mp4.CreateEmptyTrak(1, timescale, "video", "en")
	moov.AddChild(trak)
	c.describe(trak, fourcc)
	trak.Mdia.Mdhd.Duration = total
	c.addEdit(trak, timescale)

	stbl := trak.Mdia.Minf.Stbl
	stbl.Stts.SampleCount = []uint32{uint32(c.Frames)}
	stbl.Stts.SampleTimeDelta = []uint32{dur}
	stbl.Stsz.SampleNumber = uint32(c.Frames)
	stbl.Stsz.SampleSize = sizes

	if err := stbl.Stsc.AddEntry(1, uint32(per), 1); err != nil {
		return nil, fmt.Errorf("add stsc entry: %w", err)
	}
	if rest := c.Frames % per; rest != 0 {
		if err := stbl.Stsc.AddEntry(uint32(len(offsets)), uint32(rest), 1); err != nil {
			return nil, fmt.Errorf("add stsc entry: %w", err)
		}
	}

	if c.Co64 {
		stco := stbl.Stco
		stbl.Children = slices.DeleteFunc(stbl.Children, func(b mp4.Box) bool {
			return b == mp4.Box(stco)
		})
		stbl.Stco = nil
		stbl.AddChild(&mp4.Co64Box{ChunkOffset: offsets})
	} else {
		for _, off := range offsets {
			stbl.Stco.ChunkOffset = append(stbl.Stco.ChunkOffset, uint32(off))
		}
	}

	if c.Delay > 0 {
		ctts := &mp4.CttsBox{}
		if err := ctts.AddSampleCountsAndOffset([]uint32{uint32(c.Frames)}, []int32{int32(c.Delay) * int32(dur)}); err != nil {
			return nil, fmt.Errorf("add ctts entry: %w", err)
		}
		stbl.AddChild(ctts)
	}

	var buf bytes.Buffer
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := mdat.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode mdat: %w", err)
	}
	if err := moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	return buf.Bytes(), nil
}

// Write builds c as a fragmented file and stores it at path on fs.
func Write(fs afero.Fs, path string, c Clip) error {
	data, err := Build(c)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// WriteProgressive builds c as a progressive file and stores it at path on fs.
func WriteProgressive(fs afero.Fs, path string, c Clip) error {
	data, err := BuildProgressive(c)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// Frame encodes the JPEG for frame index i. Its color is FrameColor(i).
func Frame(width, height, i int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := FrameColor(i)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", i, err)
	}
	return buf.Bytes(), nil
}

// FrameColor returns the fill color of frame i.
func FrameColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i * 7), G: 128, B: uint8(255 - i*3), A: 255}
}
