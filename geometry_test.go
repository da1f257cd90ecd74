package prizewheel

import (
	"errors"
	"math"
	"testing"
	"time"
)

var allIndicators = []IndicatorPosition{Indicator12, Indicator3, Indicator6, Indicator9}

func TestIndicatorOffset(t *testing.T) {
	cases := []struct {
		pos  IndicatorPosition
		want float64
	}{
		{Indicator12, 0},
		{Indicator3, 90},
		{Indicator6, 180},
		{Indicator9, 270},
		{"", 0},
		{"7", 0},
	}
	for _, tc := range cases {
		if got := tc.pos.Offset(); got != tc.want {
			t.Errorf("Offset(%q) = %v, want %v", tc.pos, got, tc.want)
		}
	}
}

func TestParseIndicator(t *testing.T) {
	p, err := ParseIndicator("")
	if err != nil || p != Indicator12 {
		t.Fatalf("ParseIndicator(\"\") = %q, %v; want 12, nil", p, err)
	}
	p, err = ParseIndicator("9")
	if err != nil || p != Indicator9 {
		t.Fatalf("ParseIndicator(\"9\") = %q, %v; want 9, nil", p, err)
	}
	if _, err := ParseIndicator("7"); !errors.Is(err, ErrConfig) {
		t.Fatalf("ParseIndicator(\"7\") err = %v, want ErrConfig", err)
	}
}

func TestStoppingRotation_RoundTrip(t *testing.T) {
	for n := 1; n <= 50; n++ {
		for _, pos := range allIndicators {
			g := NewGeometry(n, pos)
			for i := 0; i < n; i++ {
				for _, u := range []float64{0, 0.5, 1} {
					total := g.StoppingRotation(i, u)
					if got := g.ResolveIndex(total); got != i {
						t.Fatalf("n=%d pos=%s i=%d u=%v: ResolveIndex(%v) = %d", n, pos, i, u, total, got)
					}
				}
			}
		}
	}
}

func TestStoppingRotation_Values(t *testing.T) {
	g := NewGeometry(8, Indicator12)

	if got := g.SegmentAngle(); got != 45 {
		t.Fatalf("SegmentAngle = %v, want 45", got)
	}
	if got := g.TargetAngle(0); got != 22.5 {
		t.Fatalf("TargetAngle(0) = %v, want 22.5", got)
	}

	// 5 turns + (360 - 22.5) with jitter spread of 22.5 degrees centred on zero.
	cases := []struct {
		u    float64
		want float64
	}{
		{0, 2137.5 - 11.25},
		{0.5, 2137.5},
		{1, 2137.5 + 11.25},
	}
	for _, tc := range cases {
		if got := g.StoppingRotation(0, tc.u); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("StoppingRotation(0, %v) = %v, want %v", tc.u, got, tc.want)
		}
	}

	g3 := NewGeometry(8, Indicator3)
	// Offset 90 shifts the base by a quarter turn: mod(360 - 22.5 + 90, 360) = 67.5.
	if got := g3.StoppingRotation(0, 0.5); math.Abs(got-1867.5) > 1e-9 {
		t.Errorf("indicator 3: StoppingRotation(0, 0.5) = %v, want 1867.5", got)
	}
}

func TestResolveIndex_ArbitraryRotations(t *testing.T) {
	g := NewGeometry(8, Indicator12)
	cases := []struct {
		total float64
		want  int
	}{
		{0, 0},
		{22.5, 7},
		{-22.5, 0},
		{337.5, 0},
		{337.5 + 3*360, 0},
		{180 + 22.5, 3},
		{-360 * 4, 0},
	}
	for _, tc := range cases {
		if got := g.ResolveIndex(tc.total); got != tc.want {
			t.Errorf("ResolveIndex(%v) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestResolveIndex_SingleSegment(t *testing.T) {
	g := NewGeometry(1, Indicator6)
	for _, total := range []float64{0, 1, 179.9, 359.9, -720, 12345.6} {
		if got := g.ResolveIndex(total); got != 0 {
			t.Fatalf("ResolveIndex(%v) = %d, want 0", total, got)
		}
	}
}

func TestEase(t *testing.T) {
	d := 4 * time.Second

	if got := Ease(0, d); got != 0 {
		t.Fatalf("Ease(0) = %v, want 0", got)
	}
	if got := Ease(d/2, d); math.Abs(got-0.875) > 1e-12 {
		t.Fatalf("Ease(d/2) = %v, want 0.875", got)
	}
	if got := Ease(d, d); got != 1 {
		t.Fatalf("Ease(d) = %v, want 1", got)
	}
	if got := Ease(2*d, d); got != 1 {
		t.Fatalf("Ease(2d) = %v, want 1 (clamped)", got)
	}

	prev := 0.0
	for ms := 0; ms <= 4000; ms += 16 {
		v := Ease(time.Duration(ms)*time.Millisecond, d)
		if v < prev {
			t.Fatalf("Ease not monotonic at %dms: %v < %v", ms, v, prev)
		}
		prev = v
	}
}
