package tracker

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

// Status is the coarse state of a tracking attempt, reported once per tick.
type Status int

const (
	// NoPath means there is no active path, or no nearest segment could be
	// found on it.
	NoPath Status = iota
	// FarFromPath means the robot's cross-track error exceeds DistStop;
	// velocities are zeroed but the path and Limiters are left intact.
	FarFromPath
	// Following means the controller is actively tracking the path.
	Following
	// Goal means the robot has arrived within tolerance of the final
	// vertex.
	Goal
)

// String renders the status the way it would appear in a log line.
func (s Status) String() string {
	switch s {
	case NoPath:
		return "NO_PATH"
	case FarFromPath:
		return "FAR_FROM_PATH"
	case Following:
		return "FOLLOWING"
	case Goal:
		return "GOAL"
	default:
		return "UNKNOWN"
	}
}

// StatusRecord is the per-tick report of tracking progress.
type StatusRecord struct {
	Stamp time.Time
	// PathHeader is the opaque frame/timestamp identifier carried
	// through from the path message that produced the active path.
	PathHeader string
	// PathID is the correlation id minted for the active path by
	// Controller.SetPath, letting a status record be traced back to the
	// SetPath call that produced it.
	PathID          uuid.UUID
	DistanceRemains float64
	AngleRemains    float64
	Status          Status
}

// TrackingDiagnostic carries the controller's internal operating point for
// external observability: the foot of the perpendicular from the
// look-ahead origin onto the nearest segment, in the robot frame, and the
// signed path-tangent heading there.
type TrackingDiagnostic struct {
	Stamp   time.Time
	Foot    r2.Point
	Heading float64
}
