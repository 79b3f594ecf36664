package summarizer

import (
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"
)

// MarkdownFormatter formats a Summary as Markdown tables, one section per file.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(summary *Summary) string {
	var sb strings.Builder

	sb.WriteString("# " + l10n.T("Inspection Summary") + "\n\n")
	sb.WriteString(fmt.Sprintf("%s: %s\n", l10n.T("Generated"), summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	for _, file := range summary.Files {
		sb.WriteString("\n## " + file.Path + "\n\n")
		if file.Error != "" {
			sb.WriteString(fmt.Sprintf("**%s**: %s\n", l10n.T("Error"), file.Error))
			continue
		}

		f.writeTable(&sb, l10n.T("Container"), [][2]string{
			{l10n.T("Format"), file.Container.Format},
			{l10n.T("Duration"), seconds(file.Container.Duration)},
			{l10n.T("Bit Rate"), formatBitRate(file.Container.BitRate)},
			{l10n.T("File Size"), formatBytes(file.Container.Size)},
			{l10n.T("Streams"), fmt.Sprintf("%d", file.Container.Streams)},
		})

		if v := file.Video; v != nil {
			f.writeTable(&sb, l10n.T("Video Stream"), [][2]string{
				{l10n.T("Index"), fmt.Sprintf("%d", v.Index)},
				{l10n.T("Codec"), v.Codec},
				{l10n.T("Tag"), v.Tag},
				{l10n.T("Size"), fmt.Sprintf("%dx%d", v.Width, v.Height)},
				{l10n.T("Pixel Format"), v.PixelFormat},
				{l10n.T("Time Base"), v.TimeBase},
				{l10n.T("Frame Count"), fmt.Sprintf("%d", v.Frames)},
				{l10n.T("Average Frame Rate"), rate(v.AverageFPS)},
			})
		} else {
			sb.WriteString(l10n.T("No video stream") + "\n\n")
		}

		f.writeTable(&sb, l10n.T("Duration Estimates"), [][2]string{
			{l10n.T("Fast"), seconds(file.Durations.Fast)},
			{l10n.T("Frame Accurate"), seconds(file.Durations.FrameAccurate)},
			{l10n.T("Format Only"), seconds(file.Durations.FormatOnly)},
			{l10n.T("Precise"), seconds(file.Durations.Precise)},
		})

		f.writeTable(&sb, l10n.T("Codec Identification"), [][2]string{
			{l10n.T("Target"), file.Codec.Target},
			{l10n.T("Verdict"), file.Codec.Verdict},
		})

		if d := file.Decode; d != nil {
			f.writeTable(&sb, l10n.T("Decode"), [][2]string{
				{l10n.T("Decoded Frames"), fmt.Sprintf("%d", d.Frames)},
				{l10n.T("Output Size"), fmt.Sprintf("%dx%d", d.Width, d.Height)},
				{l10n.T("First Timestamp"), seconds(d.FirstPTS)},
				{l10n.T("Last Timestamp"), seconds(d.LastPTS)},
				{l10n.T("Frames Without Timestamp"), fmt.Sprintf("%d", d.UnknownPTS)},
				{l10n.T("Saved Frames"), fmt.Sprintf("%d", d.Saved)},
				{l10n.T("Contact Sheet"), yesNo(d.ContactSheet)},
			})
		}
	}

	sb.WriteString("\n---\n")
	sb.WriteString(l10n.T("Generated by") + " framepump\n")
	return sb.String()
}

func (f *MarkdownFormatter) writeTable(sb *strings.Builder, title string, rows [][2]string) {
	sb.WriteString("### " + title + "\n\n")
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", l10n.T("Item"), l10n.T("Value")))
	sb.WriteString("|------|------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", row[0], row[1]))
	}
	sb.WriteString("\n")
}

func yesNo(b bool) string {
	if b {
		return l10n.T("Yes")
	}
	return l10n.T("No")
}
