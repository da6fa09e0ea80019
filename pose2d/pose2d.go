// Package pose2d implements the path-conditioning and geometry-query
// subsystems of the trajectory tracker: a normalized polyline of 2D poses
// (Path2D) built from an arbitrary input pose sequence (PathBuilder), and
// the nearest-segment, local-goal, cross-track, and curvature queries the
// controller runs against it every tick.
package pose2d

import (
	"math"

	"github.com/golang/geo/r2"
)

// Pose2D is a single vertex of a path: a 2D position, a heading, and an
// optional desired speed (NaN when unspecified).
type Pose2D struct {
	Position     r2.Point
	Yaw          float64
	DesiredSpeed float64
}

// NewPose2D builds a Pose2D with its yaw normalized to (-pi, pi].
func NewPose2D(position r2.Point, yaw, desiredSpeed float64) Pose2D {
	return Pose2D{Position: position, Yaw: NormalizeAngle(yaw), DesiredSpeed: desiredSpeed}
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Transformed returns the pose expressed in a parent frame, given that it
// is currently expressed relative to a local frame whose pose in the
// parent frame is (origin, yaw): p' = origin + R(yaw)*p, yaw' = yaw + p.Yaw.
func (p Pose2D) Transformed(origin r2.Point, yaw float64) Pose2D {
	cos, sin := math.Cos(yaw), math.Sin(yaw)
	rotated := r2.Point{
		X: p.Position.X*cos - p.Position.Y*sin,
		Y: p.Position.X*sin + p.Position.Y*cos,
	}
	return NewPose2D(origin.Add(rotated), yaw+p.Yaw, p.DesiredSpeed)
}

// RelativeTo returns the pose re-expressed in the local frame of a robot
// whose own pose is (origin, yaw): the exact inverse of Transformed. This
// is what turns a path vertex given in the path's frame into the
// robot-local coordinates the controller operates in.
func (p Pose2D) RelativeTo(origin r2.Point, yaw float64) Pose2D {
	rel := p.Position.Sub(origin)
	cos, sin := math.Cos(-yaw), math.Sin(-yaw)
	rotated := r2.Point{
		X: rel.X*cos - rel.Y*sin,
		Y: rel.X*sin + rel.Y*cos,
	}
	return NewPose2D(rotated, p.Yaw-yaw, p.DesiredSpeed)
}
