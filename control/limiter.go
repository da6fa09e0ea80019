// Package control implements the motion-limiting and control-law primitives
// shared by the trajectory tracker: a jerk-free velocity limiter, a gain
// scheduler, a weighted signal sum, and the time-optimal braking profile.
package control

import (
	"math"
	"sync"
)

// Limiter saturates a scalar target by symmetric velocity and acceleration
// bounds over a time step and holds the resulting value between ticks. The
// same type serves both the linear and angular velocity channels; only the
// bounds passed in at each call differ.
type Limiter struct {
	mu sync.Mutex
	x  float64
}

// Set moves the limiter's output toward target, first slewing by at most
// aMax*dt, then saturating the result to [-vMax, vMax]. It returns the new
// output.
func (l *Limiter) Set(target, vMax, aMax, dt float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	step := aMax * dt
	l.x = clamp(target, l.x-step, l.x+step)
	l.x = clamp(l.x, -vMax, vMax)
	return l.x
}

// Increment adds delta to the limiter's output, clamping delta itself to
// +/- aMax*dt before applying it, then saturating the result to
// [-vMax, vMax]. It returns the new output.
func (l *Limiter) Increment(delta, vMax, aMax, dt float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	step := aMax * dt
	l.x += clamp(delta, -step, step)
	l.x = clamp(l.x, -vMax, vMax)
	return l.x
}

// Get returns the limiter's current output without modifying it.
func (l *Limiter) Get() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.x
}

// Clear resets the limiter's output to zero.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.x = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TimeOptimal returns the instantaneous target velocity for a double
// integrator braking to rest over a signed residual delta with acceleration
// bound a: sign(delta) * sqrt(2*a*|delta|). This is the deceleration profile
// used to plan both the longitudinal approach to a local goal and the
// angular approach to a commanded heading.
func TimeOptimal(delta, a float64) float64 {
	return math.Copysign(math.Sqrt(2*a*math.Abs(delta)), delta)
}

// Clip saturates v symmetrically to [-lim, lim].
func Clip(v, lim float64) float64 {
	return clamp(v, -lim, lim)
}
