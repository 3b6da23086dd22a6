package impingement

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/logging"
	"github.com/ugvlab/arcnav/terrain"
	"github.com/ugvlab/arcnav/utils"
	"github.com/ugvlab/arcnav/waypoint"
)

const (
	minSegments = 2
	// bisections bounds the refinement of boundary crossings.
	bisections = 12
)

// Config tunes the scanner.
type Config struct {
	// MaxSegments caps the trapezoid count per scan to bound the cost of a cycle.
	MaxSegments int `json:"max_segments"`
	// RoughnessThreshold is how far a possible cell may sit from the local terrain plane and
	// still be driven over, in metres. It is calibration data.
	RoughnessThreshold float64 `json:"roughness_threshold"`
}

// DefaultConfig returns the scanner defaults.
func DefaultConfig() Config {
	return Config{MaxSegments: 12, RoughnessThreshold: 0.15}
}

// Validate ensures the config is usable.
func (c Config) Validate(path string) error {
	if c.MaxSegments < minSegments {
		return goutils.NewConfigValidationError(path, errors.Errorf("max_segments must be at least %d", minSegments))
	}
	if c.RoughnessThreshold < 0 {
		return goutils.NewConfigValidationError(path, errors.New("roughness_threshold cannot be negative"))
	}
	return nil
}

// Scanner checks a path's swept footprint for obstructions.
type Scanner struct {
	cfg    Config
	logger logging.Logger
}

// NewScanner returns a scanner.
func NewScanner(cfg Config, logger logging.Logger) *Scanner {
	return &Scanner{cfg: cfg, logger: logger}
}

// Config returns the scanner's config.
func (s *Scanner) Config() Config {
	return s.cfg
}

// SetRoughnessThreshold changes the marginal terrain acceptance at runtime.
func (s *Scanner) SetRoughnessThreshold(threshold float64) {
	s.cfg.RoughnessThreshold = threshold
}

// footprint is one trapezoid of the swept path.
type footprint struct {
	near, far   geometry.Pose
	nearS, farS float64
}

func (f footprint) corner(far bool, offset float64) r2.Point {
	p := f.near
	if far {
		p = f.far
	}
	return p.Pos.Add(geometry.RightNormal(p.Heading).Mul(offset))
}

// Scan sweeps path up to pathLength as a chain of segmentCount trapezoids, each spanning
// baseWidth/2+shoulderWidth either side of the path. grid and corridor are optional. It returns
// the impingements found and the clear length, which is the arc distance of the center hit or
// pathLength when there is none.
func (s *Scanner) Scan(
	path curvedpath.Path,
	baseWidth, shoulderWidth, pathLength float64,
	segmentCount int,
	grid terrain.Grid,
	corridor *waypoint.Triple,
) (Group, float64) {
	var group Group
	if !path.Valid() {
		group.Center = Info{Found: true, Unknown: true, Pos: path.Start().Pose.Pos, Heading: path.Start().Pose.Heading}
		return group, 0
	}
	pathLength = math.Min(pathLength, curvedpath.Overrun*path.Length())
	if pathLength <= 0 {
		return group, 0
	}
	n := utils.ClampInt(segmentCount, minSegments, s.cfg.MaxSegments)
	base := baseWidth / 2
	half := base + shoulderWidth

	prev, _ := path.PointAlongPath(0)
	worstTilt := -1.0
	for i := 1; i <= n; i++ {
		farS := pathLength * float64(i) / float64(n)
		next, ok := path.PointAlongPath(farS)
		if !ok {
			break
		}
		f := footprint{near: prev, far: next, nearS: pathLength * float64(i-1) / float64(n), farS: farS}
		prev = next

		if corridor != nil {
			s.checkCorridor(path, f, base, half, *corridor, &group)
		}
		if grid != nil {
			p, ok := s.terrainPlane(grid, f, half)
			if !ok {
				s.logger.Debugw("unknown elevation under path", "distance", f.nearS)
				group.offerCenter(Info{
					Found:    true,
					Unknown:  true,
					Pos:      f.near.Pos,
					Distance: f.nearS,
					Heading:  f.near.Heading,
				})
				break
			}
			if !group.Center.Found && p.tilt() > worstTilt {
				worstTilt = p.tilt()
				group.WorstTilt = p.normal
			}
			s.checkTerrain(grid, f, base, half, p, &group)
		}
		if group.Center.Found {
			break
		}
	}
	if group.Center.Found {
		return group, math.Min(group.Center.Distance, pathLength)
	}
	return group, pathLength
}

// checkCorridor tests the far corners of a trapezoid against the corridor.
func (s *Scanner) checkCorridor(path curvedpath.Path, f footprint, base, half float64, corridor waypoint.Triple, group *Group) {
	for _, side := range []float64{-1, 1} {
		corner := f.corner(true, side*half)
		if waypoint.DistanceOutsideTriple(corner, corridor) <= 0 {
			continue
		}
		crossing := crossingOffset(f.far, side, half, corridor)
		pos := f.corner(true, side*crossing)
		detail := waypoint.DistanceOutsideTripleDetailed(pos, corridor)
		hit := Info{
			Found:    true,
			Pos:      pos,
			Offset:   side * crossing,
			Distance: f.farS,
			Passable: true,
			Boundary: true,
			Heading:  detail.Heading,
			Edge:     detail.Boundary,
		}
		if crossing < base {
			hit.Distance = boundaryDistance(path, f, side*base, corridor)
			group.offerCenter(hit)
			continue
		}
		group.offerShoulder(hit)
	}
}

// crossingOffset finds how far from the path along the far edge the corridor boundary lies.
func crossingOffset(far geometry.Pose, side, half float64, corridor waypoint.Triple) float64 {
	outside := func(o float64) bool {
		p := far.Pos.Add(geometry.RightNormal(far.Heading).Mul(side * o))
		return waypoint.DistanceOutsideTriple(p, corridor) > 0
	}
	if outside(0) {
		return 0
	}
	lo, hi := 0., half
	for i := 0; i < bisections; i++ {
		mid := (lo + hi) / 2
		if outside(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// boundaryDistance refines where along the trapezoid a point at a fixed lateral offset first
// leaves the corridor.
func boundaryDistance(path curvedpath.Path, f footprint, offset float64, corridor waypoint.Triple) float64 {
	outside := func(dist float64) bool {
		p, ok := path.PointAlongPath(dist)
		if !ok {
			return true
		}
		edge := p.Pos.Add(geometry.RightNormal(p.Heading).Mul(offset))
		return waypoint.DistanceOutsideTriple(edge, corridor) > 0
	}
	if outside(f.nearS) {
		return f.nearS
	}
	lo, hi := f.nearS, f.farS
	for i := 0; i < bisections; i++ {
		mid := (lo + hi) / 2
		if outside(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// terrainPlane fits the local plane through the near corners and the far centre. It fails when
// any of the three has no elevation.
func (s *Scanner) terrainPlane(grid terrain.Grid, f footprint, half float64) (plane, bool) {
	pts := []r2.Point{f.corner(false, -half), f.corner(false, half), f.far.Pos}
	var samples [3]r3.Vector
	for i, p := range pts {
		ix, iy := grid.CoordToCell(p)
		e, ok := grid.ElevationAt(ix, iy)
		if !ok {
			return plane{}, false
		}
		samples[i] = r3.Vector{X: p.X, Y: p.Y, Z: e}
	}
	if p, ok := newPlane(samples[0], samples[1], samples[2]); ok {
		return p, true
	}
	// Degenerate footprints fall back to level ground.
	return plane{origin: samples[0], normal: r3.Vector{Z: 1}}, true
}

// checkTerrain rasterises a trapezoid and files every blocking cell.
func (s *Scanner) checkTerrain(grid terrain.Grid, f footprint, base, half float64, p plane, group *Group) {
	poly := []r2.Point{f.corner(false, -half), f.corner(true, -half), f.corner(true, half), f.corner(false, half)}
	span := f.farS - f.nearS
	rasterize(grid, poly, func(ix, iy int) {
		if grid.Passable(ix, iy) {
			return
		}
		pos := grid.CellToCoord(ix, iy)
		hit := Info{Found: true, Pos: pos, Heading: f.near.Heading}
		switch {
		case grid.Unknown(ix, iy):
			hit.Unknown = true
		case grid.Possible(ix, iy):
			e, ok := grid.ElevationAt(ix, iy)
			if ok {
				hit.Deviation = math.Abs(e - p.elevationAt(pos))
				if hit.Deviation < s.cfg.RoughnessThreshold {
					return
				}
			}
			hit.Possible = true
		}
		forward, lateral := geometry.Lateral(f.near.Pos, f.near.Heading, pos)
		hit.Distance = f.nearS + utils.Clamp(forward, 0, span)
		hit.Offset = lateral
		if math.Abs(lateral) <= base {
			group.offerCenter(hit)
			return
		}
		group.offerShoulder(hit)
	})
}
