package pose2d

import (
	"math"

	"github.com/golang/geo/r2"
)

// NoIndex is the sentinel index returned by FindNearest when no valid
// segment exists in the searched range; it plays the role of the C++
// implementation's end() iterator.
const NoIndex = -1

// Path2D is a finite, ordered, immutable-after-build polyline of Pose2D
// vertices. It is only ever constructed through PathBuilder.Build.
type Path2D struct {
	vertices []Pose2D
}

// Len returns the number of vertices in the path.
func (p *Path2D) Len() int {
	if p == nil {
		return 0
	}
	return len(p.vertices)
}

// At returns the vertex at index i.
func (p *Path2D) At(i int) Pose2D {
	return p.vertices[i]
}

// Vertices returns a copy of the path's vertices; the caller may not mutate
// the path through it.
func (p *Path2D) Vertices() []Pose2D {
	if p == nil {
		return nil
	}
	out := make([]Pose2D, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// InRobotFrame returns a new Path2D holding every step'th vertex (step <= 1
// means every vertex) re-expressed in the local frame of a robot whose own
// pose in this path's frame is (origin, yaw).
func (p *Path2D) InRobotFrame(origin r2.Point, yaw float64, step int) *Path2D {
	if step < 1 {
		step = 1
	}
	out := &Path2D{}
	for i := 0; i < len(p.vertices); i += step {
		out.vertices = append(out.vertices, p.vertices[i].RelativeTo(origin, yaw))
	}
	return out
}

// Length sums the Euclidean distance between successive distinct vertices;
// in-place rotation markers (coincident with their predecessor) contribute
// zero.
func (p *Path2D) Length() float64 {
	var total float64
	for i := 1; i < len(p.vertices); i++ {
		total += p.vertices[i].Position.Sub(p.vertices[i-1].Position).Norm()
	}
	return total
}

// Projection returns the foot of the perpendicular from q onto the infinite
// line through a and b.
func Projection(a, b, q r2.Point) r2.Point {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	t := q.Sub(a).Dot(ab) / l2
	return a.Add(ab.Mul(t))
}

// LineDistance returns the signed perpendicular distance from q to the
// infinite line through a and b; positive values lie to the left of a->b.
func LineDistance(a, b, q r2.Point) float64 {
	ab := b.Sub(a)
	norm := ab.Norm()
	if norm == 0 {
		return 0
	}
	return ab.Cross(q.Sub(a)) / norm
}

// FindNearest searches segments [i-1, i] for i in [begin, end) and returns
// the index of the segment endpoint whose perpendicular foot from origin
// lies within the segment and minimizes distance to origin. If
// maxSearchRange > 0, segments whose nearer endpoint is farther than
// maxSearchRange from origin are skipped. A window holding at most one
// vertex has no segment; it returns begin (the lone vertex, treated as a
// zero-length segment) when begin is a valid index, else NoIndex.
// Otherwise returns NoIndex if no valid segment exists. Ties break toward
// the lowest index.
func (p *Path2D) FindNearest(begin, end int, origin r2.Point, maxSearchRange, eps float64) int {
	if end > len(p.vertices) {
		end = len(p.vertices)
	}
	if end-begin <= 1 {
		// No real segment in range: a single-vertex path (or a search
		// window pinched to one vertex) has nothing to form [i-1,i] from.
		// Fall back to treating that lone vertex as its own degenerate
		// zero-length segment so a single-waypoint path can still be
		// tracked.
		if begin >= 0 && begin < len(p.vertices) {
			return begin
		}
		return NoIndex
	}
	start := begin
	if start < 1 {
		start = 1
	}
	best := NoIndex
	bestDist := math.Inf(1)
	for i := start; i < end; i++ {
		a, b := p.vertices[i-1].Position, p.vertices[i].Position
		if maxSearchRange > 0 {
			da := origin.Sub(a).Norm()
			db := origin.Sub(b).Norm()
			if math.Min(da, db) > maxSearchRange {
				continue
			}
		}
		segLen2 := b.Sub(a).Dot(b.Sub(a))
		foot := Projection(a, b, origin)
		if segLen2 >= eps*eps {
			t := foot.Sub(a).Dot(b.Sub(a)) / segLen2
			if t < 0 || t > 1 {
				continue
			}
		}
		d := origin.Sub(foot).Norm()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// FindLocalGoal returns the earliest index it in (begin, end] such that the
// turn between edge (it-1 -> it) and the next edge would reverse the
// robot's travel direction. When allowBackward is false, a turn relative to
// the window's starting edge also counts as a cut. Returns end if no such
// cut exists.
func (p *Path2D) FindLocalGoal(begin, end int, allowBackward bool) int {
	if end > len(p.vertices) {
		end = len(p.vertices)
	}
	if begin+1 >= end || begin+1 >= len(p.vertices) {
		return end
	}
	startEdge := p.vertices[begin+1].Position.Sub(p.vertices[begin].Position)
	for it := begin + 1; it < end-1; it++ {
		edgeCur := p.vertices[it].Position.Sub(p.vertices[it-1].Position)
		edgeNext := p.vertices[it+1].Position.Sub(p.vertices[it].Position)
		if edgeCur.Dot(edgeNext) < 0 {
			return it
		}
		if !allowBackward && startEdge.Dot(edgeCur) < 0 {
			return it
		}
	}
	return end
}

// RemainedDistance returns the distance from foot to the iNearest vertex
// along the nearest segment, plus the arc length from iNearest to iEnd.
// begin is accepted for parity with the original algorithm's signature but
// is not needed by this implementation.
func (p *Path2D) RemainedDistance(begin, iNearest, iEnd int, foot r2.Point) float64 {
	_ = begin
	if iEnd > len(p.vertices) {
		iEnd = len(p.vertices)
	}
	if iNearest >= len(p.vertices) {
		return 0
	}
	total := p.vertices[iNearest].Position.Sub(foot).Norm()
	for k := iNearest; k < iEnd-1; k++ {
		total += p.vertices[k+1].Position.Sub(p.vertices[k].Position).Norm()
	}
	return total
}

// GetCurvature accumulates arc length from foot forward through
// [iNearest, iLocalGoal) until it reaches lookAhead, then estimates the
// discrete curvature over that window via the circumscribed circle of three
// representative points. Returns 0 when the window is shorter than a small
// threshold.
func (p *Path2D) GetCurvature(iNearest, iLocalGoal int, foot r2.Point, lookAhead float64) float64 {
	const minWindow = 1e-3
	if iLocalGoal > len(p.vertices) {
		iLocalGoal = len(p.vertices)
	}
	points := []r2.Point{foot}
	last := foot
	var arc float64
	for k := iNearest; k < iLocalGoal; k++ {
		d := p.vertices[k].Position.Sub(last).Norm()
		arc += d
		last = p.vertices[k].Position
		points = append(points, last)
		if lookAhead > 0 && arc >= lookAhead {
			break
		}
	}
	if arc < minWindow || len(points) < 3 {
		return 0
	}
	a := points[0]
	b := points[len(points)/2]
	c := points[len(points)-1]
	return circumscribedCurvature(a, b, c)
}

// circumscribedCurvature returns the signed Menger curvature of the circle
// through a, b, c: 2*cross(b-a, c-a) / (|ab|*|bc|*|ca|).
func circumscribedCurvature(a, b, c r2.Point) float64 {
	ab := b.Sub(a)
	bc := c.Sub(b)
	ca := a.Sub(c)
	denom := ab.Norm() * bc.Norm() * ca.Norm()
	if denom < 1e-9 {
		return 0
	}
	return 2 * ab.Cross(c.Sub(a)) / denom
}
