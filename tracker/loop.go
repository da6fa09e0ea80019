package tracker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/time/rate"

	"go.viam.com/trajectorytracker/params"
	"go.viam.com/trajectorytracker/pose2d"
)

// Velocity is the output command: linear speed along the robot's heading
// and angular rate about its vertical axis.
type Velocity struct {
	Linear, Angular float64
}

// Twist is a body-frame velocity as reported by odometry: straight-line
// speed plus a constant yaw rate, used for short-horizon prediction.
type Twist struct {
	Linear, Angular float64
}

// Odometry is one reported pose-and-twist sample.
type Odometry struct {
	Stamp time.Time
	Pose  Transform
	Twist Twist
	Frame string
}

// TransformLookup resolves the robot's current pose in the path's frame of
// reference, along with the timestamp the transform was valid at. It may
// fail, e.g. if the frame graph has no path between the requested frames
// yet.
type TransformLookup func(ctx context.Context, at time.Time) (Transform, time.Time, error)

// maxTransformAge is the staleness threshold beyond which a CheckOldPath
// tracker logs a throttled warning, matching the original node's
// hard-coded 0.1s check.
const maxTransformAge = 100 * time.Millisecond

// CommandPublisher delivers a velocity command and a status/diagnostic
// record to whatever transport the embedding application wires up.
type CommandPublisher interface {
	PublishVelocity(ctx context.Context, v Velocity)
	PublishStatus(ctx context.Context, status StatusRecord)
	PublishTracking(ctx context.Context, diag TrackingDiagnostic)
}

// Tracker drives a Controller either at a fixed rate or from odometry
// reports, owns the live ParameterSnapshot, and publishes outputs through
// a CommandPublisher.
type Tracker struct {
	controller *Controller
	paramStore *params.Store
	publisher  CommandPublisher
	logger     golog.Logger

	prevOdomStamp     time.Time
	expectedOdomFrame string

	throttlePathRejected  rate.Sometimes
	throttleStaleTf       rate.Sometimes
	throttleFrameMismatch rate.Sometimes

	activeBackgroundWorkers sync.WaitGroup
	cancel                  context.CancelFunc
	running                 bool
}

// NewTracker returns a Tracker wired to the given Controller, parameter
// store, and output sink.
func NewTracker(controller *Controller, paramStore *params.Store, publisher CommandPublisher, logger golog.Logger) *Tracker {
	return &Tracker{
		controller:            controller,
		paramStore:            paramStore,
		publisher:             publisher,
		logger:                logger,
		throttlePathRejected:  rate.Sometimes{Interval: time.Second},
		throttleStaleTf:       rate.Sometimes{Interval: time.Second},
		throttleFrameMismatch: rate.Sometimes{Interval: time.Second},
	}
}

// SetPath normalizes vertices through a pose2d.PathBuilder and installs the
// result on the underlying Controller. A rejected (e.g. negative-speed)
// path clears the active path instead of leaving the old one in place,
// matching the "path rejected" error policy.
func (tr *Tracker) SetPath(vertices []pose2d.Vertex, header string) {
	path := pose2d.PathBuilder{Epsilon: tr.paramStore.Load().Epsilon}.Build(vertices)
	if len(vertices) > 0 && path.Len() == 0 {
		tr.throttlePathRejected.Do(func() {
			tr.logger.Warnw("path rejected: negative desired speed", "header", header)
		})
	}
	tr.controller.SetPath(path, header)
}

// WaitForArrival blocks until the active path reports Goal or ctx is
// canceled.
func (tr *Tracker) WaitForArrival(ctx context.Context, pollInterval time.Duration) error {
	return tr.controller.WaitForArrival(ctx, pollInterval)
}

// Start launches RunTimed on a background goroutine and returns once the
// goroutine is running. Stop cancels it and waits for it to exit. Callers
// that drive the tracker from odometry instead should call OnOdometry
// directly and never call Start.
func (tr *Tracker) Start(ctx context.Context, lookup TransformLookup) error {
	if tr.running {
		return errors.New("tracker already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	tr.cancel = cancel

	waitCh := make(chan struct{})
	tr.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		close(waitCh)
		if err := tr.RunTimed(runCtx, lookup); err != nil && runCtx.Err() == nil {
			tr.logger.Warnw("timed tracking loop exited", "error", err)
		}
	}, tr.activeBackgroundWorkers.Done)
	<-waitCh
	tr.running = true
	return nil
}

// Stop cancels the background loop started by Start and waits for it to
// exit, publishing a final zero-velocity command.
func (tr *Tracker) Stop() {
	if !tr.running {
		return
	}
	tr.cancel()
	tr.activeBackgroundWorkers.Wait()
	tr.running = false
}

// RunTimed runs the timed-mode loop: at a fixed rate derived from the
// current snapshot's Hz, look up the robot's transform and tick Controller
// with dt = 1/hz. It blocks until ctx is canceled, then publishes a final
// zero-velocity command.
func (tr *Tracker) RunTimed(ctx context.Context, lookup TransformLookup) error {
	defer tr.publishZero(context.Background())

	for {
		hz := tr.paramStore.Load().Hz
		if hz <= 0 {
			hz = params.DefaultSnapshot().Hz
		}
		period := time.Duration(float64(time.Second) / hz)

		if !utils.SelectContextOrWait(ctx, period) {
			return ctx.Err()
		}

		now := time.Now()
		transform, stamp, err := lookup(ctx, now)
		if err != nil {
			tr.logger.Warnw("transform lookup failed", "error", err)
			tr.publisher.PublishStatus(ctx, StatusRecord{Stamp: now, Status: NoPath})
			continue
		}

		snap := tr.paramStore.Load()
		tr.checkTransformAge(now, stamp, snap)
		tr.tickAndPublish(ctx, transform, 1.0/hz, snap)
	}
}

// OnOdometry implements odometry-driven mode: call this once per odometry
// message. dt is derived from consecutive stamps (clamped to MaxDt); the
// first sample for a fresh Tracker is absorbed with no tick. If
// PredictOdom is enabled, the reported pose is forward-integrated by the
// wall-clock delay since the report before the tick runs.
func (tr *Tracker) OnOdometry(ctx context.Context, odom Odometry, lookup TransformLookup) error {
	snap := tr.paramStore.Load()

	tr.checkOdomFrame(odom.Frame)

	if tr.prevOdomStamp.IsZero() {
		tr.prevOdomStamp = odom.Stamp
		return nil
	}

	dt := odom.Stamp.Sub(tr.prevOdomStamp).Seconds()
	tr.prevOdomStamp = odom.Stamp
	if dt <= 0 {
		return nil
	}
	if dt > snap.MaxDt {
		dt = snap.MaxDt
	}

	pose := odom.Pose
	if snap.PredictOdom {
		predictDt := time.Since(odom.Stamp).Seconds()
		predictDt = math.Max(0, math.Min(snap.MaxDt, predictDt))
		pose = predictPose(pose, odom.Twist, predictDt)
	}

	transform, stamp, err := lookup(ctx, odom.Stamp)
	if err != nil {
		tr.logger.Warnw("transform lookup failed", "error", err)
		tr.publisher.PublishStatus(ctx, StatusRecord{Stamp: odom.Stamp, Status: NoPath})
		return errors.Wrap(err, "transform lookup failed")
	}
	tr.checkTransformAge(time.Now(), stamp, snap)
	transform.Position = transform.Position.Add(pose.Position)
	transform.Yaw = pose2d.NormalizeAngle(transform.Yaw + pose.Yaw)

	tr.tickAndPublish(ctx, transform, dt, snap)
	return nil
}

// checkOdomFrame adopts the first reported odometry frame as expected and
// warns (throttled) whenever a later report names a different one, matching
// the original node's "frame_odom is invalid" recovery: log and carry on
// with the newly reported frame rather than reject the sample.
func (tr *Tracker) checkOdomFrame(frame string) {
	if frame == "" {
		return
	}
	if tr.expectedOdomFrame == "" {
		tr.expectedOdomFrame = frame
		return
	}
	if frame != tr.expectedOdomFrame {
		prev := tr.expectedOdomFrame
		tr.expectedOdomFrame = frame
		tr.throttleFrameMismatch.Do(func() {
			tr.logger.Warnw("odometry frame changed", "from", prev, "to", frame)
		})
	}
}

// checkTransformAge warns (throttled) when a looked-up transform's
// timestamp is more than maxTransformAge old and CheckOldPath is enabled.
// The tick still runs on the stale transform; this is diagnostic only.
func (tr *Tracker) checkTransformAge(now, stamp time.Time, snap params.Snapshot) {
	if !snap.CheckOldPath || stamp.IsZero() {
		return
	}
	if delay := now.Sub(stamp); delay > maxTransformAge || delay < -maxTransformAge {
		tr.throttleStaleTf.Do(func() {
			tr.logger.Warnw("timestamp of the transform is too old", "delay", delay)
		})
	}
}

// predictPose forward-integrates pose by dt using twist as a constant
// body-frame linear speed and yaw rate (straight-line + constant yaw
// rate), matching the odometry node's short-horizon prediction.
func predictPose(pose Transform, twist Twist, dt float64) Transform {
	cos, sin := math.Cos(pose.Yaw), math.Sin(pose.Yaw)
	delta := r2.Point{X: twist.Linear * dt, Y: 0}
	rotated := r2.Point{X: delta.X*cos - delta.Y*sin, Y: delta.X*sin + delta.Y*cos}
	return Transform{
		Position: pose.Position.Add(rotated),
		Yaw:      pose2d.NormalizeAngle(pose.Yaw + twist.Angular*dt),
	}
}

func (tr *Tracker) tickAndPublish(ctx context.Context, transform Transform, dt float64, snap params.Snapshot) {
	v, w, status, diag := tr.controller.Tick(transform, dt, snap)
	tr.publisher.PublishVelocity(ctx, Velocity{Linear: v, Angular: w})
	tr.publisher.PublishStatus(ctx, status)
	tr.publisher.PublishTracking(ctx, diag)
}

func (tr *Tracker) publishZero(ctx context.Context) {
	tr.publisher.PublishVelocity(ctx, Velocity{})
}
