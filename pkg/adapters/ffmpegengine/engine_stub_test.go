//go:build !ffmpeg

package ffmpegengine

import (
	"errors"
	"testing"

	"github.com/user/framepump/pkg/ports"
)

func TestEngine_NotCompiled(t *testing.T) {
	if Available {
		t.Fatal("expected engine to be unavailable without the ffmpeg tag")
	}

	e := New()
	if _, err := e.Open("clip.mp4"); !errors.Is(err, ErrNotCompiled) {
		t.Errorf("expected ErrNotCompiled from Open, got %v", err)
	}
	if _, err := e.NewDecoder(nil, ports.StreamInfo{}); !errors.Is(err, ErrNotCompiled) {
		t.Errorf("expected ErrNotCompiled from NewDecoder, got %v", err)
	}
}
