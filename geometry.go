package prizewheel

import (
	"fmt"
	"math"
	"time"
)

// IndicatorPosition names the clock position of the fixed pointer.
type IndicatorPosition string

const (
	Indicator12 IndicatorPosition = "12"
	Indicator3  IndicatorPosition = "3"
	Indicator6  IndicatorPosition = "6"
	Indicator9  IndicatorPosition = "9"
)

const (
	defaultRotations      = 5
	defaultJitterFraction = 0.5
)

// Offset returns the pointer offset in degrees, clockwise from the 12 o'clock axis.
// Unrecognized positions map to 0.
func (p IndicatorPosition) Offset() float64 {
	switch p {
	case Indicator3:
		return 90
	case Indicator6:
		return 180
	case Indicator9:
		return 270
	default:
		return 0
	}
}

// ParseIndicator validates a user-supplied indicator position.
// An empty string selects the 12 o'clock default.
func ParseIndicator(s string) (IndicatorPosition, error) {
	switch p := IndicatorPosition(s); p {
	case "":
		return Indicator12, nil
	case Indicator12, Indicator3, Indicator6, Indicator9:
		return p, nil
	default:
		return "", fmt.Errorf("%w: indicator must be one of 12, 3, 6, 9 (got %q)", ErrConfig, s)
	}
}

// Geometry maps between segment indices and wheel rotations.
//
// Segment i occupies [i*s, (i+1)*s) degrees measured clockwise from the
// reference axis of the unrotated wheel, where s is the segment angle.
// Positive rotation turns the wheel clockwise.
type Geometry struct {
	Segments       int
	Offset         float64
	Rotations      int
	JitterFraction float64
}

// NewGeometry returns a geometry for n segments using the default number of
// full turns and jitter fraction.
func NewGeometry(n int, pos IndicatorPosition) Geometry {
	return Geometry{
		Segments:       n,
		Offset:         pos.Offset(),
		Rotations:      defaultRotations,
		JitterFraction: defaultJitterFraction,
	}
}

// SegmentAngle is the angular width of one segment in degrees.
func (g Geometry) SegmentAngle() float64 {
	return 360 / float64(g.Segments)
}

// TargetAngle is the centre angle of segment i.
func (g Geometry) TargetAngle(i int) float64 {
	s := g.SegmentAngle()
	return float64(i)*s + s/2
}

// StoppingRotation returns the total rotation that lands segment i under the
// indicator. u is a uniform sample in [0,1] that places the stop within the
// centre JitterFraction of the segment.
func (g Geometry) StoppingRotation(i int, u float64) float64 {
	s := g.SegmentAngle()
	base := float64(g.Rotations)*360 + math.Mod(360-g.TargetAngle(i)+g.Offset, 360)
	spread := s * g.JitterFraction
	return base + u*spread - spread/2
}

// ResolveIndex returns the segment under the indicator after a total rotation.
func (g Geometry) ResolveIndex(total float64) int {
	normalized := math.Mod(math.Mod(total, 360)+360, 360)
	pointer := math.Mod(normalized-g.Offset+360, 360)

	idx := int(math.Floor((360-pointer)/g.SegmentAngle())) % g.Segments
	if idx < 0 {
		idx += g.Segments
	}
	return idx
}

// Ease is the cubic ease-out curve 1-(1-p)^3, with p = elapsed/duration
// clamped to [0,1].
func Ease(elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed >= duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(duration)
	q := 1 - p
	return 1 - q*q*q
}
