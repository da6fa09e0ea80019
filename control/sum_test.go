package control

import (
	"testing"

	"go.viam.com/test"
)

func TestWeightedSum(t *testing.T) {
	sum := (&WeightedSum{}).Add(2, 3).Add(-1, 4)
	test.That(t, sum.Total(), test.ShouldAlmostEqual, 2.0, 1e-9)
}

func TestAngularUpdate(t *testing.T) {
	kAngEff := Gain{Factor: 3.0}
	got := AngularUpdate(0.1, 4.5, 0.2, kAngEff, 0.05, 0.0, 1.0)
	want := -0.1*4.5 - 0.2*3.0 - (0.05-0.0)*1.0
	test.That(t, got, test.ShouldAlmostEqual, want, 1e-9)
}
