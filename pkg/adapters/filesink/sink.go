// Package filesink provides a file-based frame sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/ports"
)

// Sink saves frames, contact sheets and reports below a base directory.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new file sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame saves a decoded frame as frames/frame-NNNNNN.png. Frames with a
// timestamp carry it in milliseconds in the file name.
func (s *Sink) SaveFrame(index int, pts mo.Option[float64], img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", index, err)
	}
	return s.fs.WriteFile(filepath.Join(dir, FrameName(index, pts)), data)
}

// FrameName returns the file name SaveFrame uses for a frame.
func FrameName(index int, pts mo.Option[float64]) string {
	if v, ok := pts.Get(); ok {
		return fmt.Sprintf("frame-%06d-%dms.png", index, int64(v*1000+0.5))
	}
	return fmt.Sprintf("frame-%06d.png", index)
}

// SaveContactSheet saves the contact sheet as contact-sheet.png.
func (s *Sink) SaveContactSheet(img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "contact-sheet.png"), data)
}

// SaveReport saves a report as is under name.
func (s *Sink) SaveReport(name string, data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, name), data)
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
