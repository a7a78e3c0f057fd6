package tui

import (
	"strings"
	"testing"
)

func TestDetectLayout(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutSize
	}{
		{10, LayoutCompact},
		{59, LayoutCompact},
		{60, LayoutNormal},
		{120, LayoutNormal},
		{121, LayoutWide},
		{200, LayoutWide},
	}
	for _, tt := range tests {
		if got := DetectLayout(tt.width); got != tt.want {
			t.Errorf("DetectLayout(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestLayoutForSize(t *testing.T) {
	compact := LayoutForSize(LayoutCompact, 50)
	if compact.ShowSparklines || compact.GaugeWidth != 10 || compact.TableWidth != 46 {
		t.Errorf("compact = %+v", compact)
	}

	normal := LayoutForSize(LayoutNormal, 80)
	if !normal.ShowSparklines || normal.SparklineWidth != 50 || normal.GaugeWidth != 24 {
		t.Errorf("normal = %+v", normal)
	}

	narrow := LayoutForSize(LayoutNormal, 60)
	if narrow.SparklineWidth != 30 {
		t.Errorf("narrow sparkline width = %d", narrow.SparklineWidth)
	}

	wide := LayoutForSize(LayoutWide, 160)
	if wide.SparklineWidth != 60 || wide.TableWidth != 152 {
		t.Errorf("wide = %+v", wide)
	}
}

func TestTableHeight(t *testing.T) {
	if got := tableHeight(40, 2); got != 30 {
		t.Errorf("tableHeight(40, 2) = %d", got)
	}
	if got := tableHeight(5, 2); got != 3 {
		t.Errorf("tableHeight floor = %d", got)
	}
}

func TestSectionTitle(t *testing.T) {
	got := sectionTitle("Disk", 12)
	if got != "─── Disk ───" {
		t.Errorf("sectionTitle = %q", got)
	}
	if got := sectionTitle("Very long title", 5); got != "Very long title" {
		t.Errorf("overflow title = %q", got)
	}
	if got := horizontalRule(3); got != strings.Repeat("─", 3) {
		t.Errorf("horizontalRule = %q", got)
	}
}
