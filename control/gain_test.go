package control

import (
	"testing"

	"go.viam.com/test"
)

func TestScheduledAngularGainUnscheduled(t *testing.T) {
	g := ScheduledAngularGain(3.0, 0.8, 0)
	test.That(t, g.Factor, test.ShouldEqual, 3.0)
	test.That(t, g.Apply(2.0), test.ShouldEqual, 6.0)
}

func TestScheduledAngularGainScaled(t *testing.T) {
	g := ScheduledAngularGain(3.0, 0.5, 1.0)
	test.That(t, g.Factor, test.ShouldAlmostEqual, 1.5, 1e-9)
}
