// Package tracker implements the trajectory-tracking control loop: a
// Controller that turns a robot-in-path-frame transform, a Path2D, and a
// ParameterSnapshot into a velocity command and a status record once per
// tick, and a Tracker that drives Controller at a fixed rate or on
// odometry.
package tracker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"go.viam.com/trajectorytracker/control"
	"go.viam.com/trajectorytracker/operation"
	"go.viam.com/trajectorytracker/params"
	"go.viam.com/trajectorytracker/pose2d"
)

// Transform is the robot's pose in the path's frame of reference: not the
// inverse, and not the transform used to reproject path points, but the
// robot's own position and heading as seen from the path.
type Transform struct {
	Position r2.Point
	Yaw      float64
}

// ControllerState is the state a Controller carries between ticks for a
// single active path: both Limiters, how far along the path has been
// confirmed passed, and the header and correlation id of the path
// currently being tracked.
type ControllerState struct {
	VLimiter, WLimiter control.Limiter
	PathStepDone       int
	PathHeader         string
	// PathID is a fresh correlation id minted on every SetPath; it lets a
	// status record be traced back to the path that produced it even
	// when two paths share the same PathHeader.
	PathID uuid.UUID
}

// Controller runs one trajectory-tracking tick at a time. All state it
// needs lives on the struct; a process may run any number of independent
// Controllers concurrently.
type Controller struct {
	mu    sync.Mutex
	path  *pose2d.Path2D
	state ControllerState

	arrivalOps operation.SingleOperationManager
	lastStatus Status

	logger         golog.Logger
	throttleRotate rate.Sometimes
}

// NewController returns a Controller with an empty path.
func NewController(logger golog.Logger) *Controller {
	return &Controller{
		path:           &pose2d.Path2D{},
		logger:         logger,
		throttleRotate: rate.Sometimes{Interval: time.Second},
	}
}

// SetPath replaces the active path. Replacement resets PathStepDone to 0,
// clears both Limiters, and cancels any call blocked in WaitForArrival on
// the previous path.
func (c *Controller) SetPath(path *pose2d.Path2D, header string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == nil {
		path = &pose2d.Path2D{}
	}
	c.path = path
	c.state.PathStepDone = 0
	c.state.PathHeader = header
	c.state.PathID = uuid.New()
	c.state.VLimiter.Clear()
	c.state.WLimiter.Clear()
	c.lastStatus = NoPath
	c.arrivalOps.CancelRunning(context.Background())
}

// State returns a copy of the controller's current state, for tests and
// diagnostics.
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitForArrival blocks, polling at pollInterval, until the most recent
// tick reported Goal or ctx is canceled (including by a concurrent
// SetPath). It returns nil on arrival.
func (c *Controller) WaitForArrival(ctx context.Context, pollInterval time.Duration) error {
	return c.arrivalOps.WaitForSuccess(ctx, pollInterval, func(ctx context.Context) (bool, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.lastStatus == Goal, nil
	})
}

func (c *Controller) zeroCmdStatus(status Status) (float64, float64, StatusRecord, TrackingDiagnostic) {
	c.lastStatus = status
	rec := StatusRecord{
		Stamp:      time.Now(),
		PathHeader: c.state.PathHeader,
		PathID:     c.state.PathID,
		Status:     status,
	}
	return 0, 0, rec, TrackingDiagnostic{Stamp: rec.Stamp}
}

// Tick runs one iteration of the tracking algorithm and returns the
// commanded (v, omega), the status for this tick, and a diagnostic record
// of the controller's internal operating point. It is safe to call from
// multiple goroutines; calls are serialized.
func (c *Controller) Tick(transform Transform, dt float64, snap params.Snapshot) (float64, float64, StatusRecord, TrackingDiagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path.Len() == 0 {
		c.state.VLimiter.Clear()
		c.state.WLimiter.Clear()
		return c.zeroCmdStatus(NoPath)
	}

	lpath := c.path.InRobotFrame(transform.Position, transform.Yaw, snap.PathStep)
	pathLength := c.path.Length()

	predictedYaw := c.state.WLimiter.Get() * snap.LookForward / 2
	origin := r2.Point{X: math.Cos(predictedYaw), Y: math.Sin(predictedYaw)}.Mul(c.state.VLimiter.Get() * snap.LookForward)

	itLocalGoal := lpath.FindLocalGoal(c.state.PathStepDone, lpath.Len(), snap.AllowBackward)

	maxSearchRange := 0.0
	if c.state.PathStepDone > 0 {
		maxSearchRange = 1.0
	}
	itNearest := lpath.FindNearest(c.state.PathStepDone, itLocalGoal, origin, maxSearchRange, snap.Epsilon)
	if itNearest == pose2d.NoIndex {
		c.state.VLimiter.Clear()
		c.state.WLimiter.Clear()
		return c.zeroCmdStatus(NoPath)
	}

	iNearest := itNearest
	iNearestPrev := iNearest - 1
	if iNearestPrev < 0 {
		iNearestPrev = 0
	}

	near := lpath.At(iNearest)
	prev := lpath.At(iNearestPrev)
	foot := pose2d.Projection(prev.Position, near.Position, origin)

	linearVel := near.DesiredSpeed
	if math.IsNaN(linearVel) {
		linearVel = snap.MaxVel
	}

	remainLocal := lpath.RemainedDistance(0, iNearest, itLocalGoal, foot)
	remain := lpath.RemainedDistance(0, iNearest, lpath.Len(), foot)
	if pathLength < snap.NoPositionControlDist {
		remain, remainLocal = 0, 0
	}

	distErr := pose2d.LineDistance(prev.Position, near.Position, origin)

	vec := near.Position.Sub(prev.Position)
	angle := -math.Atan2(vec.Y, vec.X)
	anglePose := -angle
	if snap.AllowBackward {
		anglePose = near.Yaw
	}
	signVel := 1.0
	if math.Cos(-angle)*math.Cos(anglePose)+math.Sin(-angle)*math.Sin(anglePose) < 0 {
		signVel = -1.0
		angle += math.Pi
	}
	angle = pose2d.NormalizeAngle(angle)

	curv := lpath.GetCurvature(iNearest, itLocalGoal, foot, snap.CurvForward)

	rec := StatusRecord{
		Stamp:           time.Now(),
		PathHeader:      c.state.PathHeader,
		PathID:          c.state.PathID,
		DistanceRemains: remain,
		AngleRemains:    angle,
	}

	arriveLocalGoal := false
	inPlaceTurning := vec.X == 0 && vec.Y == 0

	largeAngleError := math.Abs(snap.RotateAng) < math.Pi && math.Cos(snap.RotateAng) > math.Cos(angle)

	if largeAngleError || math.Abs(remainLocal) < snap.StopToleranceDist || pathLength < snap.MinTrackingPath || inPlaceTurning {
		if largeAngleError {
			c.throttleRotate.Do(func() {
				c.logger.Infow("stop and rotate due to large angular error", "angle", angle)
			})
		}

		if pathLength < snap.MinTrackingPath || math.Abs(remainLocal) < snap.StopToleranceDist || inPlaceTurning {
			angle = pose2d.NormalizeAngle(-lpath.At(itLocalGoal - 1).Yaw)
			rec.AngleRemains = angle
			if itLocalGoal != lpath.Len() {
				arriveLocalGoal = true
			}
		}

		c.state.VLimiter.Set(0, linearVel, snap.MaxAcc, dt)
		// angle is the heading error, so the residual still to turn is its
		// negation (with the current rate's short-horizon prediction added).
		wRef := control.TimeOptimal(-(angle + c.state.WLimiter.Get()*dt*1.5), snap.AngAccToc())
		c.state.WLimiter.Set(wRef, snap.MaxAngVel, snap.MaxAngAcc, dt)

		if pathLength < snap.StopToleranceDist || inPlaceTurning {
			rec.DistanceRemains = 0
			remain = 0
		}
	} else {
		distFromPath := distErr
		if iNearest == 0 || iNearest >= lpath.Len()-1 {
			distFromPath = -near.Position.Sub(origin).Norm()
		}
		if math.Abs(distFromPath) > snap.DistStop {
			rec.Status = FarFromPath
			c.lastStatus = rec.Status
			diag := TrackingDiagnostic{Stamp: rec.Stamp, Foot: foot, Heading: -angle}
			return 0, 0, rec, diag
		}

		distErrClip := control.Clip(distErr, snap.DistLim)

		// remainLocal is the distance still to travel; signVel points it
		// backward when the path is followed in reverse.
		c.state.VLimiter.Set(control.TimeOptimal(remainLocal*signVel, snap.AccToc()), linearVel, snap.MaxAcc, dt)

		wRef := math.Abs(c.state.VLimiter.Get()) * curv
		if snap.LimitVelByAvel && math.Abs(wRef) > snap.MaxAngVel {
			c.state.VLimiter.Set(math.Copysign(1, c.state.VLimiter.Get())*math.Abs(snap.MaxAngVel/curv), linearVel, snap.MaxAcc, dt)
			wRef = math.Copysign(1, wRef) * snap.MaxAngVel
		}

		kAngEff := control.ScheduledAngularGain(snap.KAng, linearVel, snap.GainAtVel)
		c.state.WLimiter.Increment(
			dt*control.AngularUpdate(distErrClip, snap.KDist, angle, kAngEff, c.state.WLimiter.Get(), wRef, snap.KAvel),
			snap.MaxAngVel, snap.MaxAngAcc, dt,
		)
	}

	if math.Abs(rec.DistanceRemains) < snap.StopToleranceDist && math.Abs(rec.AngleRemains) < snap.StopToleranceAng {
		c.state.VLimiter.Clear()
		c.state.WLimiter.Clear()
	}

	vCmd := c.state.VLimiter.Get()
	wCmd := c.state.WLimiter.Get()

	rec.Status = Following
	if math.Abs(rec.DistanceRemains) < snap.GoalToleranceDist && math.Abs(rec.AngleRemains) < snap.GoalToleranceAng && itLocalGoal == lpath.Len() {
		rec.Status = Goal
	}

	diag := TrackingDiagnostic{
		Stamp:   rec.Stamp,
		Foot:    foot,
		Heading: -angle,
	}

	if arriveLocalGoal {
		c.state.PathStepDone = itLocalGoal
	} else if iNearest-1 > c.state.PathStepDone {
		c.state.PathStepDone = iNearest - 1
	}

	c.lastStatus = rec.Status
	return vCmd, wCmd, rec, diag
}
