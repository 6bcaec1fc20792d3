package crs

import (
	"errors"
	"math"

	"github.com/machbase/neo-polarmap/mods/nums"
)

type laeaMode int

const (
	laeaNorthPole laeaMode = iota
	laeaSouthPole
	laeaEquatorial
	laeaOblique
)

const eps10 = 1e-10

// LAEA is the Lambert azimuthal equal-area projection on an ellipsoid,
// a sphere is the special case of zero eccentricity.
type LAEA struct {
	a, e, es     float64
	lon0, phi0   float64
	x0, y0       float64
	mode         laeaMode
	qp, rq, dd   float64
	xmf, ymf     float64
	sinb1, cosb1 float64
	apa          [3]float64
}

func NewLAEA(params Proj4Params) (*LAEA, error) {
	a, fi, err := params.Ellipsoid()
	if err != nil {
		return nil, err
	}
	if a <= 0 {
		return nil, errors.New("semi-major axis must be positive")
	}
	lat0, err := params.Float("lat_0", 0)
	if err != nil {
		return nil, err
	}
	lon0, err := params.Float("lon_0", 0)
	if err != nil {
		return nil, err
	}
	x0, err := params.Float("x_0", 0)
	if err != nil {
		return nil, err
	}
	y0, err := params.Float("y_0", 0)
	if err != nil {
		return nil, err
	}
	if lat0 < -90 || lat0 > 90 {
		return nil, errors.New("lat_0 out of range")
	}
	l := &LAEA{
		a:    a,
		lon0: lon0 * math.Pi / 180,
		phi0: lat0 * math.Pi / 180,
		x0:   x0,
		y0:   y0,
	}
	if fi != 0 {
		f := 1 / fi
		l.es = f * (2 - f)
		l.e = math.Sqrt(l.es)
	}
	l.init()
	return l, nil
}

func (l *LAEA) init() {
	t := math.Abs(l.phi0)
	switch {
	case math.Abs(t-math.Pi/2) < eps10:
		if l.phi0 < 0 {
			l.mode = laeaSouthPole
		} else {
			l.mode = laeaNorthPole
		}
	case t < eps10:
		l.mode = laeaEquatorial
	default:
		l.mode = laeaOblique
	}

	l.qp = qsfn(1, l.e, l.es)
	l.apa = authset(l.es)
	switch l.mode {
	case laeaNorthPole, laeaSouthPole:
		l.dd = 1
	case laeaEquatorial:
		l.rq = math.Sqrt(.5 * l.qp)
		l.dd = 1 / l.rq
		l.xmf = 1
		l.ymf = .5 * l.qp
	case laeaOblique:
		l.rq = math.Sqrt(.5 * l.qp)
		sinph0 := math.Sin(l.phi0)
		l.sinb1 = qsfn(sinph0, l.e, l.es) / l.qp
		l.cosb1 = math.Sqrt(1 - l.sinb1*l.sinb1)
		l.dd = math.Cos(l.phi0) / (math.Sqrt(1-l.es*sinph0*sinph0) * l.rq * l.cosb1)
		l.xmf = l.rq * l.dd
		l.ymf = l.rq / l.dd
	}
}

// qsfn is the authalic q function for sin(phi).
func qsfn(sinphi, e, es float64) float64 {
	if e < 1e-7 {
		return 2 * sinphi
	}
	con := e * sinphi
	return (1 - es) * (sinphi/(1-con*con) - (.5/e)*math.Log((1-con)/(1+con)))
}

func authset(es float64) [3]float64 {
	const (
		p00 = .33333333333333333333
		p01 = .17222222222222222222
		p02 = .10257936507936507936
		p10 = .06388888888888888888
		p11 = .06640211640211640211
		p20 = .01641501294219154443
	)
	var apa [3]float64
	t := es * es
	apa[0] = es*p00 + t*p01
	apa[1] = t * p10
	t *= es
	apa[0] += t * p02
	apa[1] += t * p11
	apa[2] = t * p20
	return apa
}

func authlat(beta float64, apa [3]float64) float64 {
	t := beta + beta
	return beta + apa[0]*math.Sin(t) + apa[1]*math.Sin(t+t) + apa[2]*math.Sin(t+t+t)
}

var nanPoint = nums.Point{X: math.NaN(), Y: math.NaN()}

func (l *LAEA) Project(ll nums.LatLng) nums.Point {
	lam := ll.Lng*math.Pi/180 - l.lon0
	phi := ll.Lat * math.Pi / 180
	coslam, sinlam := math.Cos(lam), math.Sin(lam)
	q := qsfn(math.Sin(phi), l.e, l.es)

	var sinb, cosb, b float64
	if l.mode == laeaOblique || l.mode == laeaEquatorial {
		sinb = q / l.qp
		cosb = math.Sqrt(math.Max(0, 1-sinb*sinb))
	}
	switch l.mode {
	case laeaOblique:
		b = 1 + l.sinb1*sinb + l.cosb1*cosb*coslam
	case laeaEquatorial:
		b = 1 + cosb*coslam
	case laeaNorthPole:
		b = math.Pi/2 + phi
		q = l.qp - q
	case laeaSouthPole:
		b = phi - math.Pi/2
		q = l.qp + q
	}
	if math.Abs(b) < eps10 {
		// antipode of the projection center
		return nanPoint
	}

	var x, y float64
	switch l.mode {
	case laeaOblique:
		b = math.Sqrt(2 / b)
		y = l.ymf * b * (l.cosb1*sinb - l.sinb1*cosb*coslam)
		x = l.xmf * b * cosb * sinlam
	case laeaEquatorial:
		b = math.Sqrt(2 / b)
		y = b * sinb * l.ymf
		x = l.xmf * b * cosb * sinlam
	case laeaNorthPole, laeaSouthPole:
		if q >= 0 {
			b = math.Sqrt(q)
			x = b * sinlam
			if l.mode == laeaSouthPole {
				y = coslam * b
			} else {
				y = coslam * -b
			}
		}
	}
	return nums.Point{X: l.a*x + l.x0, Y: l.a*y + l.y0}
}

func (l *LAEA) Unproject(p nums.Point) nums.LatLng {
	x := (p.X - l.x0) / l.a
	y := (p.Y - l.y0) / l.a

	var ab float64
	switch l.mode {
	case laeaEquatorial, laeaOblique:
		x /= l.dd
		y *= l.dd
		rho := math.Hypot(x, y)
		if rho < eps10 {
			return l.center()
		}
		v := .5 * rho / l.rq
		if v > 1 {
			return nums.LatLng{Lat: math.NaN(), Lng: math.NaN()}
		}
		sCe := 2 * math.Asin(v)
		cCe, sCe := math.Cos(sCe), math.Sin(sCe)
		x *= sCe
		if l.mode == laeaOblique {
			ab = cCe*l.sinb1 + y*sCe*l.cosb1/rho
			y = rho*l.cosb1*cCe - y*l.sinb1*sCe
		} else {
			ab = y * sCe / rho
			y = rho * cCe
		}
	case laeaNorthPole, laeaSouthPole:
		if l.mode == laeaNorthPole {
			y = -y
		}
		q := x*x + y*y
		if q == 0 {
			return l.center()
		}
		if q > l.qp*2 {
			return nums.LatLng{Lat: math.NaN(), Lng: math.NaN()}
		}
		ab = 1 - q/l.qp
		if l.mode == laeaSouthPole {
			ab = -ab
		}
	}
	ab = math.Max(-1, math.Min(1, ab))
	lam := math.Atan2(x, y)
	phi := authlat(math.Asin(ab), l.apa)
	return nums.LatLng{
		Lat: phi * 180 / math.Pi,
		Lng: normalizeLng((lam + l.lon0) * 180 / math.Pi),
	}
}

func (l *LAEA) center() nums.LatLng {
	return nums.LatLng{Lat: l.phi0 * 180 / math.Pi, Lng: normalizeLng(l.lon0 * 180 / math.Pi)}
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
