package mocks

import (
	"image"
	"sync"

	"github.com/samber/mo"

	"github.com/user/framepump/pkg/ports"
)

// SavedFrame is one frame recorded by FrameSink.
type SavedFrame struct {
	Index  int
	PTS    mo.Option[float64]
	Bounds image.Rectangle
}

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	mu sync.RWMutex

	enabled bool

	SaveFrameFunc func(index int, pts mo.Option[float64], img image.Image) error

	Frames       []SavedFrame
	ContactSheet image.Image
	Reports      map[string][]byte
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink(enabled bool) *FrameSink {
	return &FrameSink{
		enabled: enabled,
		Reports: make(map[string][]byte),
	}
}

func (m *FrameSink) Enabled() bool {
	return m.enabled
}

func (m *FrameSink) SaveFrame(index int, pts mo.Option[float64], img image.Image) error {
	if m.SaveFrameFunc != nil {
		return m.SaveFrameFunc(index, pts, img)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, SavedFrame{Index: index, PTS: pts, Bounds: img.Bounds()})
	return nil
}

func (m *FrameSink) SaveContactSheet(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContactSheet = img
	return nil
}

func (m *FrameSink) SaveReport(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports[name] = append([]byte(nil), data...)
	return nil
}

// GetReport returns a saved report.
func (m *FrameSink) GetReport(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.Reports[name]
	return data, ok
}

var _ ports.FrameSink = (*FrameSink)(nil)
