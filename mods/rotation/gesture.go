package rotation

import "math"

// MaxSamples is the number of touchmove samples the tracker keeps.
const MaxSamples = 10

// RotateThreshold is the gesture rotation in degrees a touch must exceed to rotate the map.
const RotateThreshold = 45.0

type Direction int

const (
	None Direction = iota
	Clockwise
	CounterClockwise
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	default:
		return "none"
	}
}

// GestureTracker turns two finger rotate gestures into rotations.
// The sign of the final rotation is not reliable on every device,
// so the direction comes from the first and last retained samples.
type GestureTracker struct {
	samples []float64
	onCW    func()
	onCCW   func()
}

func NewGestureTracker(onCW, onCCW func()) *GestureTracker {
	return &GestureTracker{
		samples: make([]float64, 0, MaxSamples),
		onCW:    onCW,
		onCCW:   onCCW,
	}
}

func (g *GestureTracker) TouchStart() {
	g.samples = g.samples[:0]
}

func (g *GestureTracker) TouchMove(rotation float64) {
	if len(g.samples) == MaxSamples {
		copy(g.samples, g.samples[1:])
		g.samples = g.samples[:MaxSamples-1]
	}
	g.samples = append(g.samples, rotation)
}

// TouchEnd decides the direction of the gesture and runs its callback.
func (g *GestureTracker) TouchEnd(rotation float64) Direction {
	if len(g.samples) == 0 || math.Abs(rotation) <= RotateThreshold {
		return None
	}
	direction := g.samples[0] - g.samples[len(g.samples)-1]
	if direction > 0 {
		if g.onCCW != nil {
			g.onCCW()
		}
		return CounterClockwise
	}
	if g.onCW != nil {
		g.onCW()
	}
	return Clockwise
}

func (g *GestureTracker) Samples() []float64 {
	return append([]float64(nil), g.samples...)
}
