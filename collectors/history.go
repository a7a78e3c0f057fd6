package collectors

// MaxHistorySamples is the length of every sparkline ring.
const MaxHistorySamples = 60

// AppendHistory appends value and trims history to MaxHistorySamples,
// dropping the oldest entries.
func AppendHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > MaxHistorySamples {
		history = history[len(history)-MaxHistorySamples:]
	}
	return history
}

// CopyHistory returns a copy of history safe to hand to another goroutine.
func CopyHistory(history []float64) []float64 {
	out := make([]float64, len(history))
	copy(out, history)
	return out
}
