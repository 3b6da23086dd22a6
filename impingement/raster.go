package impingement

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/ugvlab/arcnav/terrain"
)

// rasterize calls emit for every grid cell whose centre lies inside the convex polygon, one
// cell row at a time.
func rasterize(g terrain.Grid, poly []r2.Point, emit func(ix, iy int)) {
	if len(poly) < 3 {
		return
	}
	lo, hi := poly[0], poly[0]
	for _, p := range poly[1:] {
		lo = r2.Point{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = r2.Point{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	ix0, iy0 := g.CoordToCell(lo)
	_, iy1 := g.CoordToCell(hi)
	for iy := iy0; iy <= iy1; iy++ {
		cy := g.CellToCoord(ix0, iy).Y
		xMin, xMax, ok := rowSpan(poly, cy)
		if !ok {
			continue
		}
		ixa, _ := g.CoordToCell(r2.Point{X: xMin, Y: cy})
		ixb, _ := g.CoordToCell(r2.Point{X: xMax, Y: cy})
		for ix := ixa; ix <= ixb; ix++ {
			cx := g.CellToCoord(ix, iy).X
			if cx >= xMin && cx <= xMax {
				emit(ix, iy)
			}
		}
	}
}

// rowSpan intersects the horizontal line at y with the polygon's edges.
func rowSpan(poly []r2.Point, y float64) (float64, float64, bool) {
	xMin, xMax := math.Inf(1), math.Inf(-1)
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if (a.Y <= y && b.Y > y) || (b.Y <= y && a.Y > y) {
			x := a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			xMin = math.Min(xMin, x)
			xMax = math.Max(xMax, x)
		}
	}
	return xMin, xMax, xMin <= xMax
}

// plane is the local terrain surface through three sampled points.
type plane struct {
	origin r3.Vector
	// normal points up.
	normal r3.Vector
}

// newPlane fits a plane through three points. It fails when they are collinear.
func newPlane(a, b, c r3.Vector) (plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Norm() < 1e-9 {
		return plane{}, false
	}
	n = n.Normalize()
	if n.Z < 0 {
		n = n.Mul(-1)
	}
	if n.Z < 1e-6 {
		return plane{}, false
	}
	return plane{origin: a, normal: n}, true
}

// elevationAt returns the plane's height above a ground position.
func (p plane) elevationAt(pos r2.Point) float64 {
	return p.origin.Z - (p.normal.X*(pos.X-p.origin.X)+p.normal.Y*(pos.Y-p.origin.Y))/p.normal.Z
}

// tilt returns the plane's angle from horizontal.
func (p plane) tilt() float64 {
	return math.Acos(math.Min(1, p.normal.Z))
}
