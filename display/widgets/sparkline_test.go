package widgets

import (
	"strings"
	"testing"
)

func TestRenderSparkline_Ascending(t *testing.T) {
	out := RenderSparkline(SparklineConfig{Data: []float64{0, 1, 2, 3, 4, 5, 6, 7}})
	want := string(sparkBlocks)
	if out != want {
		t.Errorf("RenderSparkline = %q, want %q", out, want)
	}
}

func TestRenderSparkline_Empty(t *testing.T) {
	if out := RenderSparkline(SparklineConfig{}); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestRenderSparkline_ScalesAgainstMax(t *testing.T) {
	// 50 Mbps against a 100 Mbps ceiling sits mid-height, not at the top.
	out := []rune(RenderSparkline(SparklineConfig{Data: []float64{50}, Max: 100}))
	if len(out) != 1 || out[0] != sparkBlocks[4] {
		t.Errorf("got %q, want %q", string(out), string(sparkBlocks[4]))
	}

	// A sample above Max stretches the scale.
	out = []rune(RenderSparkline(SparklineConfig{Data: []float64{50, 200}, Max: 100}))
	if out[1] != sparkBlocks[7] || out[0] != sparkBlocks[2] {
		t.Errorf("stretched scale = %q", string(out))
	}
}

func TestRenderSparkline_AllZero(t *testing.T) {
	out := RenderSparkline(SparklineConfig{Data: []float64{0, 0, 0}})
	if out != strings.Repeat(string(sparkBlocks[0]), 3) {
		t.Errorf("all-zero sparkline = %q", out)
	}
}

func TestRenderSparkline_Width(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if out := []rune(RenderSparkline(SparklineConfig{Data: data, Width: 4})); len(out) != 4 {
		t.Errorf("truncated width = %d, want 4", len(out))
	}

	out := RenderSparkline(SparklineConfig{Data: []float64{1, 2}, Width: 5})
	if !strings.HasPrefix(out, "   ") || len([]rune(out)) != 5 {
		t.Errorf("padded sparkline = %q", out)
	}
}

func TestRenderSparkline_Label(t *testing.T) {
	out := RenderSparkline(SparklineConfig{Data: []float64{1}, Label: "CPU"})
	if !strings.HasPrefix(out, "CPU ") {
		t.Errorf("label missing: %q", out)
	}
}

func TestSparklinePeak(t *testing.T) {
	if got := SparklinePeak([]float64{3, 9, 2}); got != 9 {
		t.Errorf("peak = %v", got)
	}
	if got := SparklinePeak(nil); got != 0 {
		t.Errorf("empty peak = %v", got)
	}
}
