package crs

import "github.com/machbase/neo-polarmap/mods/nums"

// Transformation is an affine transformation (a*x + b, c*y + d) followed by a scale.
type Transformation struct {
	A, B, C, D float64
}

func (t Transformation) Transform(p nums.Point, scale float64) nums.Point {
	return nums.Point{
		X: scale * (t.A*p.X + t.B),
		Y: scale * (t.C*p.Y + t.D),
	}
}

func (t Transformation) Untransform(p nums.Point, scale float64) nums.Point {
	return nums.Point{
		X: (p.X/scale - t.B) / t.A,
		Y: (p.Y/scale - t.D) / t.C,
	}
}
