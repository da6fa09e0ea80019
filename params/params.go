// Package params holds the trajectory tracker's runtime-tunable
// configuration as an atomically-swapped immutable snapshot: the parameter
// callback allocates a new Snapshot and stores it, and every Controller
// tick reads exactly one snapshot at entry, per the "no tick observes a
// partially updated snapshot" invariant.
package params

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Snapshot is the full set of tunables a Controller tick reads. It is
// immutable once published through Store.
type Snapshot struct {
	// Hz is the control rate in timed mode.
	Hz float64

	// UseOdom selects odometry-driven ticking over timed ticking.
	UseOdom bool
	// PredictOdom forward-integrates the last odometry report before
	// invoking Controller.
	PredictOdom bool
	// MaxDt bounds both the inferred tick dt and the odometry prediction
	// horizon.
	MaxDt float64

	// LookForward is the aim-ahead distance used to build the look-ahead
	// origin.
	LookForward float64
	// CurvForward is the arc window for curvature estimation.
	CurvForward float64

	// KDist, KAng, KAvel are the PD gains on cross-track, heading, and
	// angular-rate error.
	KDist, KAng, KAvel float64
	// GainAtVel is the reference speed for KAng scheduling; 0 disables
	// scheduling.
	GainAtVel float64

	// DistLim clips the cross-track error before the angular update.
	DistLim float64
	// DistStop is the cross-track abort threshold.
	DistStop float64

	// MaxVel, MaxAngVel are the Limiter ceilings.
	MaxVel, MaxAngVel float64
	// MaxAcc, MaxAngAcc are the Limiter slew rates.
	MaxAcc, MaxAngAcc float64
	// AccTocFactor, AngAccTocFactor scale MaxAcc/MaxAngAcc down to the
	// acceleration bound used by the time-optimal braking profile.
	AccTocFactor, AngAccTocFactor float64

	// RotateAng is the heading-error threshold that forces the
	// rotate-in-place branch.
	RotateAng float64

	// GoalToleranceDist, GoalToleranceAng gate the GOAL status.
	GoalToleranceDist, GoalToleranceAng float64
	// StopToleranceDist, StopToleranceAng gate arrival latching and the
	// rotate branch.
	StopToleranceDist, StopToleranceAng float64

	// NoPositionControlDist is the path length below which cross-track
	// position control is bypassed.
	NoPositionControlDist float64
	// MinTrackingPath is the path length below which the rotate branch is
	// forced.
	MinTrackingPath float64

	// PathStep is the stride used when downsampling Path2D into lpath.
	PathStep int

	// AllowBackward permits reverse travel along the path.
	AllowBackward bool
	// LimitVelByAvel scales v down to respect MaxAngVel through curvature
	// feed-forward.
	LimitVelByAvel bool
	// CheckOldPath warns when a transform's timestamp is stale.
	CheckOldPath bool

	// Epsilon is the minimum translation that counts as a non-rotation
	// vertex.
	Epsilon float64
}

// DefaultSnapshot returns conservative defaults in the spirit of the
// original node's dynamic_reconfigure defaults.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Hz:                    50.0,
		UseOdom:               false,
		PredictOdom:           true,
		MaxDt:                 0.2,
		LookForward:           0.5,
		CurvForward:           0.5,
		KDist:                 1.0,
		KAng:                  1.0,
		KAvel:                 1.0,
		GainAtVel:             0.0,
		DistLim:               0.5,
		DistStop:              2.0,
		MaxVel:                0.5,
		MaxAngVel:             1.0,
		MaxAcc:                1.0,
		MaxAngAcc:             2.0,
		AccTocFactor:          0.9,
		AngAccTocFactor:       0.9,
		RotateAng:             math.Pi / 4,
		GoalToleranceDist:     0.2,
		GoalToleranceAng:      0.1,
		StopToleranceDist:     0.1,
		StopToleranceAng:      0.05,
		NoPositionControlDist: 0.1,
		MinTrackingPath:       0.0,
		PathStep:              1,
		AllowBackward:         true,
		LimitVelByAvel:        false,
		CheckOldPath:          false,
		Epsilon:               0.001,
	}
}

// Validate rejects a Snapshot that would violate the controller's safety
// invariants: negative bounds, a non-positive control rate, or a path step
// smaller than 1.
func (s Snapshot) Validate() error {
	switch {
	case s.Hz <= 0:
		return errors.New("hz must be positive")
	case s.MaxDt <= 0:
		return errors.New("max_dt must be positive")
	case s.MaxVel < 0 || s.MaxAngVel < 0:
		return errors.New("max_vel and max_angvel must be non-negative")
	case s.MaxAcc < 0 || s.MaxAngAcc < 0:
		return errors.New("max_acc and max_angacc must be non-negative")
	case s.DistLim < 0 || s.DistStop < 0:
		return errors.New("dist_lim and dist_stop must be non-negative")
	case s.PathStep < 1:
		return errors.New("path_step must be at least 1")
	case s.Epsilon <= 0:
		return errors.New("epsilon must be positive")
	case s.AccTocFactor < 0 || s.AngAccTocFactor < 0:
		return errors.New("acc_toc_factor and angacc_toc_factor must be non-negative")
	}
	return nil
}

// AccToc and AngAccToc are the acceleration bounds the time-optimal braking
// profile uses, derived from MaxAcc/MaxAngAcc scaled by the *TocFactor
// fields.
func (s Snapshot) AccToc() float64    { return s.MaxAcc * s.AccTocFactor }
func (s Snapshot) AngAccToc() float64 { return s.MaxAngAcc * s.AngAccTocFactor }

// Store holds the current Snapshot behind an atomic pointer so that ticks
// never observe a partially updated configuration and the parameter
// callback never blocks on a tick.
type Store struct {
	value atomic.Value
}

// NewStore returns a Store pre-populated with DefaultSnapshot.
func NewStore() *Store {
	s := &Store{}
	s.value.Store(DefaultSnapshot())
	return s
}

// Load returns the currently published Snapshot.
func (s *Store) Load() Snapshot {
	v := s.value.Load()
	if v == nil {
		return DefaultSnapshot()
	}
	return v.(Snapshot)
}

// Update validates next and, if valid, publishes it atomically. On
// validation failure the previous snapshot is retained and the error is
// returned for the caller to log.
func (s *Store) Update(next Snapshot) error {
	if err := next.Validate(); err != nil {
		return errors.Wrap(err, "rejected parameter update")
	}
	s.value.Store(next)
	return nil
}
