package codecid

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/user/framepump/pkg/adapters/mp4demux"
	"github.com/user/framepump/pkg/adapters/mp4demux/mp4test"
	"github.com/user/framepump/pkg/mocks"
	"github.com/user/framepump/pkg/ports"
)

// fourcc packs s little-endian, first character in the lowest byte.
func fourcc(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

func TestIsNotchLC_Fixtures(t *testing.T) {
	fs := afero.NewMemMapFs()
	jpeg := mp4test.Clip{Width: 16, Height: 16, FPS: 10, Frames: 3}
	notch := jpeg
	notch.FourCC = "nclc"
	if err := mp4test.Write(fs, "jpeg.mov", jpeg); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := mp4test.Write(fs, "notch.mov", notch); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	d := mp4demux.NewWithFs(fs)

	tests := []struct {
		path string
		want Verdict
	}{
		{"jpeg.mov", NoMatch},
		{"notch.mov", Match},
		{"missing.mov", Indeterminate},
		{"", Indeterminate},
	}
	for _, tt := range tests {
		if got := IsNotchLC(d, tt.path); got != tt.want {
			t.Errorf("IsNotchLC(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name   string
		stream ports.StreamInfo
		target Target
		want   Verdict
	}{
		{"by name", ports.StreamInfo{CodecName: "notchlc"}, NotchLC, Match},
		{"by tag when name differs", ports.StreamInfo{CodecName: "none", CodecTag: fourcc("nclc")}, NotchLC, Match},
		{"tag is case sensitive", ports.StreamInfo{CodecName: "none", CodecTag: fourcc("NCLC")}, NotchLC, NoMatch},
		{"zero tag", ports.StreamInfo{CodecName: "h264"}, NotchLC, NoMatch},
		{"other codec", ports.StreamInfo{CodecName: "h264", CodecTag: fourcc("avc1")}, NotchLC, NoMatch},
		{"custom target", ports.StreamInfo{CodecName: "prores", CodecTag: fourcc("apch")}, Target{Name: "prores"}, Match},
		{"custom tag only", ports.StreamInfo{CodecName: "", CodecTag: fourcc("apch")}, Target{AltTag: "apch"}, Match},
		{"empty target never matches", ports.StreamInfo{CodecName: ""}, Target{}, NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := mocks.NewSource(ports.FormatInfo{}, tt.stream, nil)
			if got := Identify(mocks.NewDemuxer(src), "a.mov", tt.target); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if src.Closes != 1 {
				t.Errorf("expected source closed once, got %d", src.Closes)
			}
		})
	}
}

func TestIdentify_NoVideoStream(t *testing.T) {
	src := &mocks.Source{StreamList: []ports.StreamInfo{{MediaType: ports.MediaTypeAudio, CodecName: "notchlc"}}}
	log := mocks.NewLogger()

	if got := New(mocks.NewDemuxer(src), log).Identify("a.mov", NotchLC); got != Indeterminate {
		t.Errorf("expected Indeterminate, got %v", got)
	}
	if log.Count(ports.LevelDebug) == 0 {
		t.Error("expected a debug message")
	}
}

func TestTagString(t *testing.T) {
	tests := []struct {
		tag  uint32
		want string
	}{
		{0x636c636e, "nclc"},
		{0x31637661, "avc1"},
		{0x00006162, "ba"},
		{0, ""},
	}
	for _, tt := range tests {
		if got := TagString(tt.tag); got != tt.want {
			t.Errorf("TagString(%#x) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestVerdict_String(t *testing.T) {
	if Match.String() != "match" || NoMatch.String() != "no match" || Indeterminate.String() != "indeterminate" {
		t.Errorf("unexpected verdict strings: %s, %s, %s", Match, NoMatch, Indeterminate)
	}
}

func TestNew_NilLoggerDiscards(t *testing.T) {
	id := New(nil, nil)
	if _, ok := id.logger.(ports.NopLogger); !ok {
		t.Errorf("expected ports.NopLogger, got %T", id.logger)
	}
}
