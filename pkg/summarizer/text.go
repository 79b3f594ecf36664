package summarizer

import (
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"
)

// NewTextFormatter returns a formatter printing one indented block per file.
func NewTextFormatter() Formatter {
	return FormatFunc(formatText)
}

func formatText(summary *Summary) string {
	var sb strings.Builder
	for i, file := range summary.Files {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(file.Path + "\n")
		if file.Error != "" {
			line(&sb, l10n.T("Error"), file.Error)
			continue
		}

		line(&sb, l10n.T("Format"), file.Container.Format)
		line(&sb, l10n.T("Duration"), seconds(file.Container.Duration))
		if v := file.Video; v != nil {
			line(&sb, l10n.T("Video"), fmt.Sprintf("#%d %s (%s) %dx%d %s", v.Index, v.Codec, v.Tag, v.Width, v.Height, v.PixelFormat))
			line(&sb, l10n.T("Frame Rate"), rate(v.AverageFPS))
		} else {
			line(&sb, l10n.T("Video"), l10n.T("No video stream"))
		}
		line(&sb, l10n.T("Fast"), seconds(file.Durations.Fast))
		line(&sb, l10n.T("Frame Accurate"), seconds(file.Durations.FrameAccurate))
		line(&sb, l10n.T("Format Only"), seconds(file.Durations.FormatOnly))
		line(&sb, l10n.T("Precise"), seconds(file.Durations.Precise))
		line(&sb, l10n.T("Codec"), fmt.Sprintf("%s: %s", file.Codec.Target, file.Codec.Verdict))
		if d := file.Decode; d != nil {
			line(&sb, l10n.T("Decoded Frames"), fmt.Sprintf("%d (%s - %s)", d.Frames, seconds(d.FirstPTS), seconds(d.LastPTS)))
		}
	}
	return sb.String()
}

func line(sb *strings.Builder, label, value string) {
	sb.WriteString(fmt.Sprintf("  %-16s %s\n", label+":", value))
}
