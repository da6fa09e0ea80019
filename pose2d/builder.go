package pose2d

import (
	"math"

	"github.com/golang/geo/r2"
)

// Vertex is the input unit PathBuilder consumes: a pose carrying its own
// optional desired speed (Pose2D.DesiredSpeed is math.NaN() when
// unspecified, letting the controller substitute a configured default).
type Vertex struct {
	Pose Pose2D
}

// VertexFromPose adapts a bare pose (no speed) into a Vertex.
func VertexFromPose(position r2.Point, yaw float64) Vertex {
	return Vertex{Pose: NewPose2D(position, yaw, math.NaN())}
}

// VertexFromPoseWithVelocity adapts a pose-with-velocity message into a
// Vertex, carrying speed through verbatim.
func VertexFromPoseWithVelocity(position r2.Point, yaw, speed float64) Vertex {
	return Vertex{Pose: NewPose2D(position, yaw, speed)}
}

// PathBuilder normalizes an arbitrary input pose sequence into a Path2D,
// separating translation edges from in-place rotations and rejecting
// malformed speed values.
type PathBuilder struct {
	// Epsilon is the distance below which two consecutive positions are
	// considered coincident. Zero selects a small default.
	Epsilon float64
}

const defaultBuilderEpsilon = 1e-6

// Build runs the PathBuilder algorithm over vertices, returning the
// resulting Path2D. An empty input yields an empty Path2D. The first
// vertex is pushed verbatim, unvalidated, matching cbPath's loop bounds;
// if any vertex from the second on has a speed that is finite and
// negative, the entire path is rejected and an empty Path2D is returned.
func (b PathBuilder) Build(vertices []Vertex) *Path2D {
	eps := b.Epsilon
	if eps <= 0 {
		eps = defaultBuilderEpsilon
	}
	if len(vertices) == 0 {
		return &Path2D{}
	}
	for _, v := range vertices[1:] {
		speed := v.Pose.DesiredSpeed
		if !math.IsNaN(speed) && !math.IsInf(speed, 0) && speed < 0 {
			return &Path2D{}
		}
	}

	out := &Path2D{}
	out.vertices = append(out.vertices, vertices[0].Pose)

	var pending *Pose2D
	last := vertices[0].Pose
	for i := 1; i < len(vertices); i++ {
		next := vertices[i].Pose
		d := next.Position.Sub(last.Position)
		if d.Dot(d) >= eps*eps {
			if pending != nil {
				out.vertices = append(out.vertices, *pending)
				pending = nil
			}
			out.vertices = append(out.vertices, next)
		} else {
			marker := NewPose2D(last.Position, next.Yaw, next.DesiredSpeed)
			pending = &marker
		}
		last = next
	}
	if pending != nil {
		out.vertices = append(out.vertices, *pending)
	}
	return out
}
