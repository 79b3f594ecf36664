package mp4demux

import "github.com/user/framepump/pkg/ports"

// codecEntry maps a sample entry fourcc to libav-style codec naming.
type codecEntry struct {
	name   string
	media  ports.MediaType
	pixfmt ports.PixelFormat
}

var sampleEntryCodecs = map[string]codecEntry{
	"avc1": {"h264", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"avc3": {"h264", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"hvc1": {"hevc", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"hev1": {"hevc", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"av01": {"av1", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"vp08": {"vp8", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"vp09": {"vp9", ports.MediaTypeVideo, ports.PixelFormatYUV420P},
	"jpeg": {"mjpeg", ports.MediaTypeVideo, ports.PixelFormatYUVJ420P},
	"mjpa": {"mjpeg", ports.MediaTypeVideo, ports.PixelFormatYUVJ420P},
	"mjpb": {"mjpegb", ports.MediaTypeVideo, ports.PixelFormatYUVJ420P},
	"apch": {"prores", ports.MediaTypeVideo, ports.PixelFormatYUV422P},
	"apcn": {"prores", ports.MediaTypeVideo, ports.PixelFormatYUV422P},
	"apcs": {"prores", ports.MediaTypeVideo, ports.PixelFormatYUV422P},
	"apco": {"prores", ports.MediaTypeVideo, ports.PixelFormatYUV422P},
	"ap4h": {"prores", ports.MediaTypeVideo, ports.PixelFormatYUV444P},
	"nclc": {"notchlc", ports.MediaTypeVideo, ports.PixelFormatRGBA},
	"mp4a": {"aac", ports.MediaTypeAudio, ports.PixelFormatNone},
	"ac-3": {"ac3", ports.MediaTypeAudio, ports.PixelFormatNone},
	"ec-3": {"eac3", ports.MediaTypeAudio, ports.PixelFormatNone},
	"Opus": {"opus", ports.MediaTypeAudio, ports.PixelFormatNone},
	"wvtt": {"webvtt", ports.MediaTypeSubtitle, ports.PixelFormatNone},
	"stpp": {"ttml", ports.MediaTypeSubtitle, ports.PixelFormatNone},
}

// lookupCodec returns the codec for fourcc. Unknown video entries keep the
// track's handler media type and report codec "none".
func lookupCodec(fourcc string, handler ports.MediaType) codecEntry {
	if e, ok := sampleEntryCodecs[fourcc]; ok {
		return e
	}
	return codecEntry{name: "none", media: handler}
}

// fourccTag packs a fourcc with its first character in the lowest byte.
func fourccTag(fourcc string) uint32 {
	var tag uint32
	for i := 0; i < 4 && i < len(fourcc); i++ {
		tag |= uint32(fourcc[i]) << (8 * i)
	}
	return tag
}

func handlerMediaType(handler string) ports.MediaType {
	switch handler {
	case "vide":
		return ports.MediaTypeVideo
	case "soun":
		return ports.MediaTypeAudio
	case "subt", "text", "sbtl", "clcp":
		return ports.MediaTypeSubtitle
	case "":
		return ports.MediaTypeUnknown
	default:
		return ports.MediaTypeData
	}
}
