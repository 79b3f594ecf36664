package summarizer

import (
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/samber/mo"
)

// seconds formats a duration estimate.
func seconds(o mo.Option[float64]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%.3f s", v)
	}
	return l10n.T("Unknown")
}

// rate formats a frame rate.
func rate(o mo.Option[float64]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%.3f fps", v)
	}
	return l10n.T("Unknown")
}

// formatBytes formats a byte count in human-readable form.
func formatBytes(bytes int64) string {
	if bytes <= 0 {
		return l10n.T("Unknown")
	}
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatBitRate formats bits per second.
func formatBitRate(bps int64) string {
	switch {
	case bps <= 0:
		return l10n.T("Unknown")
	case bps >= 1000000:
		return fmt.Sprintf("%.2f Mbps", float64(bps)/1e6)
	case bps >= 1000:
		return fmt.Sprintf("%.1f kbps", float64(bps)/1e3)
	default:
		return fmt.Sprintf("%d bps", bps)
	}
}
