package main

import (
	"strings"
	"testing"
)

func TestFormatTokenCount(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{999_999, "1000.0K"},
		{1_000_000, "1.00M"},
		{2_500_000, "2.50M"},
	}
	for _, c := range cases {
		if got := formatTokenCount(c.n); got != c.want {
			t.Errorf("formatTokenCount(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestRenderCostBarClampsPercent(t *testing.T) {
	below := renderCostBar(-10, 10)
	if strings.Count(below, "░") != 10 {
		t.Errorf("expected a fully empty bar for a negative percent, got %q", below)
	}

	above := renderCostBar(250, 10)
	if strings.Count(above, "█") != 10 {
		t.Errorf("expected a fully filled bar for a percent over 100, got %q", above)
	}
}

func TestRenderCostBarWidth(t *testing.T) {
	bar := renderCostBar(50, 20)
	filled := strings.Count(bar, "█")
	empty := strings.Count(bar, "░")
	if filled+empty != 20 {
		t.Errorf("expected bar of width 20, got %d filled + %d empty", filled, empty)
	}
	if filled != 10 {
		t.Errorf("expected 10 filled cells at 50%%, got %d", filled)
	}
}
