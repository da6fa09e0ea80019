package control

// Gain scales a single input by a fixed factor. It is the scalar building
// block the controller's gain scheduler is built from: k_ang_eff is a Gain
// whose factor is recomputed once per tick from the current path segment's
// desired speed and the configured reference speed.
type Gain struct {
	Factor float64
}

// Apply returns x scaled by the gain's factor.
func (g Gain) Apply(x float64) float64 {
	return x * g.Factor
}

// ScheduledAngularGain computes k_ang_eff for the follow branch (spec §4.D
// step 9): unscheduled when gainAtVel is zero, otherwise kAng scaled by the
// ratio of the current segment's desired speed to the reference speed.
func ScheduledAngularGain(kAng, segmentSpeed, gainAtVel float64) Gain {
	if gainAtVel == 0 {
		return Gain{Factor: kAng}
	}
	return Gain{Factor: kAng * segmentSpeed / gainAtVel}
}
