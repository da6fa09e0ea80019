package params

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultSnapshotIsValid(t *testing.T) {
	test.That(t, DefaultSnapshot().Validate(), test.ShouldBeNil)
}

func TestStoreLoadDefaultsWithoutUpdate(t *testing.T) {
	s := NewStore()
	test.That(t, s.Load().MaxVel, test.ShouldEqual, DefaultSnapshot().MaxVel)
}

func TestStoreUpdateAccepted(t *testing.T) {
	s := NewStore()
	next := DefaultSnapshot()
	next.MaxVel = 2.0
	test.That(t, s.Update(next), test.ShouldBeNil)
	test.That(t, s.Load().MaxVel, test.ShouldEqual, 2.0)
}

func TestStoreUpdateRejectedRetainsPrevious(t *testing.T) {
	s := NewStore()
	bad := DefaultSnapshot()
	bad.MaxVel = -1.0
	err := s.Update(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, s.Load().MaxVel, test.ShouldEqual, DefaultSnapshot().MaxVel)
}

func TestAccTocScalesMaxAcc(t *testing.T) {
	snap := DefaultSnapshot()
	snap.MaxAcc = 2.0
	snap.AccTocFactor = 0.5
	test.That(t, snap.AccToc(), test.ShouldAlmostEqual, 1.0, 1e-9)
}
