//go:build ffmpeg

package ffmpegengine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/mp4demux/mp4test"
	"github.com/user/framepump/pkg/ports"
)

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := mp4test.Write(afero.NewOsFs(), path, mp4test.Clip{Width: 32, Height: 16, FPS: 10, Frames: 20}); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestEngine_ProbeAndDecode(t *testing.T) {
	e := New()
	e.SetEngineLogLevel(ports.LevelError)

	src, err := e.Open(writeClip(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if err := src.FindStreamInfo(); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}
	idx, err := src.BestVideoStream()
	if err != nil {
		t.Fatalf("BestVideoStream failed: %v", err)
	}
	st := src.Streams()[idx]
	if st.CodecName != "mjpeg" {
		t.Errorf("expected mjpeg, got %q", st.CodecName)
	}
	if st.Width != 32 || st.Height != 16 {
		t.Errorf("expected 32x16, got %dx%d", st.Width, st.Height)
	}

	dec, err := e.NewDecoder(src, st)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	defer dec.Close()

	conv, err := e.NewConverter(dec.Width(), dec.Height(), dec.PixelFormat(), dec.Width(), dec.Height(), ports.PixelFormatBGRA)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	defer conv.Close()

	frame := dec.AllocFrame()
	defer frame.Free()
	buf := make([]byte, 32*4*16)

	var pkt ports.Packet
	frames := 0
	flushed := false
	for {
		if !flushed {
			err := src.ReadPacket(&pkt)
			switch {
			case errors.Is(err, ports.ErrEndOfInput):
				flushed = true
				if err := dec.SendPacket(nil); err != nil {
					t.Fatalf("flush failed: %v", err)
				}
			case err != nil:
				t.Fatalf("ReadPacket failed: %v", err)
			default:
				if err := dec.SendPacket(&pkt); err != nil && !errors.Is(err, ports.ErrNeedMoreInput) {
					t.Fatalf("SendPacket failed: %v", err)
				}
				pkt.Unref()
			}
		}

		err := dec.ReceiveFrame(frame)
		if errors.Is(err, ports.ErrNeedMoreInput) {
			continue
		}
		if errors.Is(err, ports.ErrDrained) {
			break
		}
		if err != nil {
			t.Fatalf("ReceiveFrame failed: %v", err)
		}
		if err := conv.Convert(frame, buf, 32*4); err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		frame.Unref()
		frames++
	}

	if frames != 20 {
		t.Errorf("expected 20 frames, got %d", frames)
	}
}

func TestEngine_OpenMissing(t *testing.T) {
	if _, err := New().Open(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}
