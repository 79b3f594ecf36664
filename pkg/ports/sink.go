package ports

import (
	"image"

	"github.com/samber/mo"
)

// FrameSink receives images and reports produced while inspecting a file.
type FrameSink interface {
	// Enabled returns true if the sink stores anything.
	Enabled() bool

	// SaveFrame stores one decoded frame. pts is in seconds.
	SaveFrame(index int, pts mo.Option[float64], img image.Image) error

	// SaveContactSheet stores the rendered thumbnail sheet.
	SaveContactSheet(img image.Image) error

	// SaveReport stores a formatted inspection report under name.
	SaveReport(name string, data []byte) error
}
