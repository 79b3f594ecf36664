package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/ports"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// =============================================================================
// Probe Stage Types
// =============================================================================

// ProbeInput names the container to probe.
type ProbeInput struct {
	Path string
}

// ProbeResult is the raw container metadata.
type ProbeResult struct {
	Path       string
	FormatName string
	// Duration is the container duration in seconds.
	Duration mo.Option[float64]
	BitRate  int64
	Size     int64
	Streams  int

	// Video is the selected video stream, valid when HasVideo is set.
	Video    ports.StreamInfo
	HasVideo bool
}

// =============================================================================
// Estimate Stage Types
// =============================================================================

// EstimateInput contains parameters for duration estimation.
type EstimateInput struct {
	Path      string
	Windows   []float64 // Tail scan windows in seconds (default: 0, 5, 30)
	ScanLimit int       // Packets read per window (default: 10000)
	Precise   bool      // Run the seek-and-scan estimator
}

// EstimateResult holds every estimate. None means unknown.
type EstimateResult struct {
	Fast          mo.Option[float64]
	FrameAccurate mo.Option[float64]
	FormatOnly    mo.Option[float64]
	Precise       mo.Option[float64]
	AverageFPS    mo.Option[float64]
}

// Best returns the most trustworthy known duration.
func (r EstimateResult) Best() mo.Option[float64] {
	for _, o := range []mo.Option[float64]{r.Precise, r.FrameAccurate, r.Fast} {
		if o.IsPresent() {
			return o
		}
	}
	return mo.None[float64]()
}

// FrameCount estimates the number of frames from the frame-accurate duration,
// else the best one, and the average rate.
func (r EstimateResult) FrameCount() mo.Option[int] {
	d, ok := r.FrameAccurate.Get()
	if !ok {
		d, ok = r.Best().Get()
	}
	if !ok {
		return mo.None[int]()
	}
	fps, ok := r.AverageFPS.Get()
	if !ok {
		return mo.None[int]()
	}
	return mo.Some(int(d*fps + 0.5))
}

// =============================================================================
// Identify Stage Types
// =============================================================================

// IdentifyInput names the container and the codec to look for.
type IdentifyInput struct {
	Path   string
	Target codecid.Target
}

// IdentifyResult is the codec verdict.
type IdentifyResult struct {
	Target  codecid.Target
	Verdict codecid.Verdict
}

// =============================================================================
// Frames Stage Types
// =============================================================================

// FramesInput contains parameters for pumping every frame.
type FramesInput struct {
	Path string
	// SaveEvery writes every Nth frame to the sink. Zero disables saving.
	SaveEvery int
	// ThumbEvery keeps every Nth frame as a thumbnail. Zero keeps none.
	ThumbEvery int
	// ThumbWidth is the thumbnail width; height follows the aspect ratio.
	ThumbWidth int
}

// Thumbnail is a scaled copy of one decoded frame.
type Thumbnail struct {
	Index int
	PTS   mo.Option[float64]
	Image image.Image
}

// FramesResult summarizes a full decode.
type FramesResult struct {
	Count      int
	Width      int
	Height     int
	Codec      string
	FirstPTS   mo.Option[float64]
	LastPTS    mo.Option[float64]
	UnknownPTS int // Frames returned without a timestamp
	Saved      int
	Thumbnails []Thumbnail
}

// =============================================================================
// Layout Stage Types
// =============================================================================

// LayoutInput contains parameters for the contact sheet grid.
type LayoutInput struct {
	Count        int // Number of cells
	Columns      int // Number of columns (default: 4)
	CellWidth    int // Thumbnail width
	CellHeight   int // Thumbnail height
	Gap          int // Gap between cells (default: 8)
	Padding      int // Padding around the sheet (default: 16)
	LabelHeight  int // Height of the timestamp label under each cell (default: 14)
	HeaderHeight int // Height of the title header (default: 24)
}

// DefaultLayoutInput returns LayoutInput with default values.
func DefaultLayoutInput() LayoutInput {
	return LayoutInput{
		Columns:      4,
		CellWidth:    160,
		CellHeight:   90,
		Gap:          8,
		Padding:      16,
		LabelHeight:  14,
		HeaderHeight: 24,
	}
}

// Cell is the placement of one thumbnail and its label.
type Cell struct {
	Image Rectangle
	Label Rectangle
}

// LayoutResult contains the sheet size and the cell positions.
type LayoutResult struct {
	Sheet  Dimension
	Header Rectangle
	Cells  []Cell
}

// =============================================================================
// Sheet Stage Types
// =============================================================================

// SheetTheme contains colors for the contact sheet.
type SheetTheme struct {
	BackgroundColor color.Color
	TextColor       color.Color
	BorderColor     color.Color
	FontSize        float64
}

// DefaultSheetTheme returns the default contact sheet theme.
func DefaultSheetTheme() SheetTheme {
	return SheetTheme{
		BackgroundColor: color.RGBA{R: 26, G: 26, B: 46, A: 255},
		TextColor:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
		BorderColor:     color.RGBA{R: 51, G: 51, B: 85, A: 255},
		FontSize:        11,
	}
}

// SheetInput contains the thumbnails and their placement.
type SheetInput struct {
	Title      string
	Thumbnails []Thumbnail
	Layout     LayoutResult
	Theme      SheetTheme
}

// SheetResult is the rendered contact sheet.
type SheetResult struct {
	Image image.Image
}

// FormatClock formats seconds as MM:SS.mmm, or H:MM:SS.mmm from one hour on.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	ms %= 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}
