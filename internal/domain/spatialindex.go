package domain

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// sitePoint is a 2-D lat/lon point tagged with its position in the
// construction sequence, so query results can be mapped back to sites.
type sitePoint struct {
	geo Geo
	pos int
}

func (p sitePoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.geo.Lat
	}
	return p.geo.Lon
}

func (p sitePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(sitePoint).coord(d)
}

func (p sitePoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance, the metric the kd-tree
// search prunes with. Callers wanting true distance must take the root.
func (p sitePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(sitePoint)
	dLat := p.geo.Lat - q.geo.Lat
	dLon := p.geo.Lon - q.geo.Lon
	return dLat*dLat + dLon*dLon
}

type sitePoints []sitePoint

func (p sitePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p sitePoints) Len() int                      { return len(p) }
func (p sitePoints) Pivot(d kdtree.Dim) int {
	return sitePlane{Dim: d, sitePoints: p}.Pivot()
}
func (p sitePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// sitePlane sorts sitePoints along a single dimension for pivot selection.
type sitePlane struct {
	kdtree.Dim
	sitePoints
}

func (p sitePlane) Less(i, j int) bool {
	return p.sitePoints[i].coord(p.Dim) < p.sitePoints[j].coord(p.Dim)
}
func (p sitePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p sitePlane) Slice(start, end int) kdtree.SortSlicer {
	p.sitePoints = p.sitePoints[start:end]
	return p
}
func (p sitePlane) Swap(i, j int) {
	p.sitePoints[i], p.sitePoints[j] = p.sitePoints[j], p.sitePoints[i]
}

// SpatialIndex answers nearest-point queries over a fixed set of
// coordinates. The point set is constant for the index's lifetime: build a
// new index when it changes. Queries are read-only and may be repeated
// without reconstruction cost.
type SpatialIndex struct {
	tree *kdtree.Tree
	n    int
}

// NewSpatialIndex builds an index over coords. Positions returned by Nearest
// refer to the order of coords.
func NewSpatialIndex(coords []Geo) *SpatialIndex {
	if len(coords) == 0 {
		return &SpatialIndex{}
	}
	pts := make(sitePoints, len(coords))
	for i, c := range coords {
		pts[i] = sitePoint{geo: c, pos: i}
	}
	return &SpatialIndex{tree: kdtree.New(pts, false), n: len(pts)}
}

// Len returns the number of indexed points.
func (x *SpatialIndex) Len() int { return x.n }

// Nearest returns the construction-order position of the point closest to q
// and the Euclidean distance to it. Exact-distance ties resolve to whichever
// point the tree search settles on first. Returns ErrEmptyIndex when the
// index holds no points.
func (x *SpatialIndex) Nearest(q Geo) (int, float64, error) {
	if x.n == 0 {
		return 0, 0, ErrEmptyIndex
	}
	got, dist := x.tree.Nearest(sitePoint{geo: q})
	return got.(sitePoint).pos, math.Sqrt(dist), nil
}
