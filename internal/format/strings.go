package format

import (
	"fmt"
	"math"
)

// TruncateWithEllipsis truncates a string to maxWidth runes, appending "..."
// if the string exceeds the limit. If maxWidth is less than 4, the string
// is hard-truncated without an ellipsis suffix.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}

	if maxWidth < 4 {
		return string(runes[:maxWidth])
	}

	return string(runes[:maxWidth-3]) + "..."
}

// FormatBytes renders a byte count with a binary unit: "512 B", "1.5 KiB",
// "3.2 GiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit && exp < 5; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatMiB renders a session total given in MiB, switching to GiB past
// 1024 MiB.
func FormatMiB(mib float64) string {
	if mib >= 1024 {
		return fmt.Sprintf("%.2f GiB", mib/1024)
	}
	return fmt.Sprintf("%.1f MiB", mib)
}

// FormatRate renders a rate with its unit. Invalid rates render as "--"
// so a failed sample is never shown as zero.
func FormatRate(value float64, valid bool, unit string) string {
	if !valid || math.IsNaN(value) || math.IsInf(value, 0) {
		return "-- " + unit
	}
	switch {
	case value >= 100:
		return fmt.Sprintf("%.0f %s", value, unit)
	case value >= 10:
		return fmt.Sprintf("%.1f %s", value, unit)
	default:
		return fmt.Sprintf("%.2f %s", value, unit)
	}
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
