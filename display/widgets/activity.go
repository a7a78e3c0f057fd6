package widgets

import "github.com/charmbracelet/lipgloss"

// Activity is a coarse label for how busy a link is.
type Activity int

const (
	ActivityUnknown Activity = iota
	ActivityIdle
	ActivityLow
	ActivityModerate
	ActivityHigh
	ActivityVeryHigh
	ActivityPeak
)

// activityBands lists the lower bounds (exclusive, Mbps) of Low through
// Peak for one direction.
type activityBands [5]float64

var (
	downloadBands = activityBands{0.1, 1, 10, 100, 500}
	uploadBands   = activityBands{0.05, 0.5, 5, 50, 200}
)

func (b activityBands) classify(mbps float64, valid bool) Activity {
	if !valid {
		return ActivityUnknown
	}
	level := ActivityIdle
	for i, bound := range b {
		if mbps > bound {
			level = ActivityLow + Activity(i)
		}
	}
	return level
}

// DownloadActivity classifies a download rate in Mbps.
func DownloadActivity(mbps float64, valid bool) Activity {
	return downloadBands.classify(mbps, valid)
}

// UploadActivity classifies an upload rate in Mbps. Its bands sit lower
// than download because typical uplinks are slower.
func UploadActivity(mbps float64, valid bool) Activity {
	return uploadBands.classify(mbps, valid)
}

// Label returns the display text. The peak band reads differently per
// direction.
func (a Activity) Label(upload bool) string {
	switch a {
	case ActivityIdle:
		return "Idle"
	case ActivityLow:
		return "Low"
	case ActivityModerate:
		return "Moderate"
	case ActivityHigh:
		return "High"
	case ActivityVeryHigh:
		return "Very High"
	case ActivityPeak:
		if upload {
			return "Ultra"
		}
		return "Gigabit"
	default:
		return "No data"
	}
}

func (a Activity) color() lipgloss.Color {
	switch a {
	case ActivityUnknown, ActivityIdle:
		return colorMuted
	case ActivityLow, ActivityModerate:
		return ColorOK
	case ActivityHigh, ActivityVeryHigh:
		return ColorWarn
	default:
		return ColorDanger
	}
}

// RenderActivity renders the colored label for a.
func RenderActivity(a Activity, upload bool) string {
	return lipgloss.NewStyle().Foreground(a.color()).Render(a.Label(upload))
}
