package nums

import (
	"fmt"
	"math"
)

// Point is a planar coordinate, either projected meters or pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("[%v,%v]", p.X, p.Y)
}

func (p Point) Add(o Point) Point     { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point     { return Point{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Bounds is a planar rectangle.
type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// NewBounds normalizes the corners so that Min holds the smaller values.
func NewBounds(a, b Point) Bounds {
	return Bounds{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

func (b Bounds) IsEmpty() bool {
	return b.Min == b.Max
}

func (b Bounds) Size() Point {
	return b.Max.Sub(b.Min)
}

func (b Bounds) Center() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clamp returns p moved to the nearest position inside b.
func (b Bounds) Clamp(p Point) Point {
	return Point{
		X: math.Max(b.Min.X, math.Min(b.Max.X, p.X)),
		Y: math.Max(b.Min.Y, math.Min(b.Max.Y, p.Y)),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%s,%s]", b.Min.String(), b.Max.String())
}
