// Package terrain defines the traversability grid the planner reads obstacles and elevation
// from, along with an in-memory implementation.
package terrain

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RoadBias is the road follower's suggestion: a curvature and how confident it is, in [0, 1].
type RoadBias struct {
	Confidence float64
	Curvature  float64
}

// Grid is the cell query interface of the terrain map. A cell is impassable when it is
// neither passable, possible nor unknown.
type Grid interface {
	Passable(ix, iy int) bool
	// Possible cells are marginal: traversable when smooth enough.
	Possible(ix, iy int) bool
	Unknown(ix, iy int) bool
	// CellToCoord returns the centre of a cell.
	CellToCoord(ix, iy int) r2.Point
	CoordToCell(p r2.Point) (ix, iy int)
	CellSize() float64
	// ElevationAt reports false for cells without a defined elevation.
	ElevationAt(ix, iy int) (float64, bool)
	RoadFollowBias() RoadBias
}

// Impassable reports whether a cell is known to block the vehicle.
func Impassable(g Grid, ix, iy int) bool {
	return !g.Passable(ix, iy) && !g.Possible(ix, iy) && !g.Unknown(ix, iy)
}

// Class is what a MemoryGrid cell holds.
type Class uint8

// Cell classes.
const (
	ClassUnknown Class = iota
	ClassPassable
	ClassPossible
	ClassImpassable
)

func (c Class) String() string {
	switch c {
	case ClassPassable:
		return "passable"
	case ClassPossible:
		return "possible"
	case ClassImpassable:
		return "impassable"
	default:
		return "unknown"
	}
}

// ParseClass returns the class named by Class.String.
func ParseClass(name string) (Class, error) {
	for _, c := range []Class{ClassUnknown, ClassPassable, ClassPossible, ClassImpassable} {
		if c.String() == name {
			return c, nil
		}
	}
	return ClassUnknown, errors.Errorf("unknown cell class %q", name)
}

// MemoryGrid is a fixed-origin Grid held in memory. Cells start passable on flat ground at
// elevation zero; anything outside the grid is unknown.
type MemoryGrid struct {
	origin   r2.Point
	cellSize float64
	cols     int
	rows     int
	classes  []Class
	// elevation is rows x cols; NaN marks an undefined elevation.
	elevation *mat.Dense
	bias      RoadBias
}

// NewMemoryGrid returns a cols x rows grid whose cell (0, 0) has its corner at origin.
func NewMemoryGrid(origin r2.Point, cellSize float64, cols, rows int) *MemoryGrid {
	g := &MemoryGrid{
		origin:    origin,
		cellSize:  cellSize,
		cols:      cols,
		rows:      rows,
		classes:   make([]Class, cols*rows),
		elevation: mat.NewDense(rows, cols, nil),
	}
	for i := range g.classes {
		g.classes[i] = ClassPassable
	}
	return g
}

// Dims returns the grid size in cells.
func (g *MemoryGrid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// Origin returns the corner of cell (0, 0).
func (g *MemoryGrid) Origin() r2.Point {
	return g.origin
}

func (g *MemoryGrid) inBounds(ix, iy int) bool {
	return ix >= 0 && iy >= 0 && ix < g.cols && iy < g.rows
}

// Class returns the class of a cell; out of bounds cells are unknown.
func (g *MemoryGrid) Class(ix, iy int) Class {
	if !g.inBounds(ix, iy) {
		return ClassUnknown
	}
	return g.classes[iy*g.cols+ix]
}

// Passable implements Grid.
func (g *MemoryGrid) Passable(ix, iy int) bool {
	return g.Class(ix, iy) == ClassPassable
}

// Possible implements Grid.
func (g *MemoryGrid) Possible(ix, iy int) bool {
	return g.Class(ix, iy) == ClassPossible
}

// Unknown implements Grid.
func (g *MemoryGrid) Unknown(ix, iy int) bool {
	return g.Class(ix, iy) == ClassUnknown
}

// CellToCoord implements Grid.
func (g *MemoryGrid) CellToCoord(ix, iy int) r2.Point {
	return r2.Point{
		X: g.origin.X + (float64(ix)+0.5)*g.cellSize,
		Y: g.origin.Y + (float64(iy)+0.5)*g.cellSize,
	}
}

// CoordToCell implements Grid.
func (g *MemoryGrid) CoordToCell(p r2.Point) (int, int) {
	return int(math.Floor((p.X - g.origin.X) / g.cellSize)), int(math.Floor((p.Y - g.origin.Y) / g.cellSize))
}

// CellSize implements Grid.
func (g *MemoryGrid) CellSize() float64 {
	return g.cellSize
}

// ElevationAt implements Grid. Unknown cells have no elevation.
func (g *MemoryGrid) ElevationAt(ix, iy int) (float64, bool) {
	if !g.inBounds(ix, iy) || g.Unknown(ix, iy) {
		return math.NaN(), false
	}
	e := g.elevation.At(iy, ix)
	if math.IsNaN(e) {
		return e, false
	}
	return e, true
}

// RoadFollowBias implements Grid.
func (g *MemoryGrid) RoadFollowBias() RoadBias {
	return g.bias
}

// SetRoadBias sets what RoadFollowBias reports.
func (g *MemoryGrid) SetRoadBias(bias RoadBias) {
	g.bias = bias
}

// SetCell sets the class of one cell. Out of bounds cells are ignored.
func (g *MemoryGrid) SetCell(ix, iy int, class Class) {
	if g.inBounds(ix, iy) {
		g.classes[iy*g.cols+ix] = class
	}
}

// FillRect sets the class of every cell whose centre lies in the rectangle spanned by two
// corners.
func (g *MemoryGrid) FillRect(a, b r2.Point, class Class) {
	g.eachCellIn(a, b, func(ix, iy int) { g.SetCell(ix, iy, class) })
}

// SetElevation sets one cell's elevation; NaN makes it undefined.
func (g *MemoryGrid) SetElevation(ix, iy int, elevation float64) {
	if g.inBounds(ix, iy) {
		g.elevation.Set(iy, ix, elevation)
	}
}

// SetElevationFunc samples f at every cell centre.
func (g *MemoryGrid) SetElevationFunc(f func(p r2.Point) float64) {
	for iy := 0; iy < g.rows; iy++ {
		for ix := 0; ix < g.cols; ix++ {
			g.elevation.Set(iy, ix, f(g.CellToCoord(ix, iy)))
		}
	}
}

// FillElevation sets the elevation of every cell whose centre lies in a rectangle.
func (g *MemoryGrid) FillElevation(a, b r2.Point, elevation float64) {
	g.eachCellIn(a, b, func(ix, iy int) { g.SetElevation(ix, iy, elevation) })
}

func (g *MemoryGrid) eachCellIn(a, b r2.Point, fn func(ix, iy int)) {
	lo := r2.Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	hi := r2.Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	x0, y0 := g.CoordToCell(lo)
	x1, y1 := g.CoordToCell(hi)
	for iy := y0; iy <= y1; iy++ {
		for ix := x0; ix <= x1; ix++ {
			c := g.CellToCoord(ix, iy)
			if c.X >= lo.X && c.X <= hi.X && c.Y >= lo.Y && c.Y <= hi.Y {
				fn(ix, iy)
			}
		}
	}
}

// Count returns how many cells hold a class.
func (g *MemoryGrid) Count(class Class) int {
	var n int
	for _, c := range g.classes {
		if c == class {
			n++
		}
	}
	return n
}
