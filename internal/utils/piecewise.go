package utils

// Point is one knot of a piecewise-linear mapping.
type Point struct {
	X, Y float64
}

// Piecewise is a piecewise-linear function over knots sorted by X.
// Values outside the knots are clamped to the first or last Y.
type Piecewise []Point

// At evaluates the function at x.
func (p Piecewise) At(x float64) float64 {
	if len(p) == 0 {
		return 0
	}
	if x <= p[0].X {
		return p[0].Y
	}
	last := p[len(p)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(p); i++ {
		if x <= p[i].X {
			lo, hi := p[i-1], p[i]
			return lo.Y + (x-lo.X)*(hi.Y-lo.Y)/(hi.X-lo.X)
		}
	}
	return last.Y
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

