package memstore

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/calib"
)

func validCal(id string) calib.Calibration {
	return calib.Calibration{
		PosID:            id,
		LengthR1:         3,
		LengthR2:         3,
		PhysicalRangeT:   calib.Range{Min: -180, Max: 180},
		PhysicalRangeP:   calib.Range{Min: -5, Max: 185},
		TargetableRangeT: calib.Range{Min: -175, Max: 175},
		TargetableRangeP: calib.Range{Min: 0, Max: 180},
		CtrlEnabled:      true,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	c := validCal("P001")
	test.That(t, s.Put(c), test.ShouldBeNil)

	got, ok := s.Get("P001")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldResemble, c)

	_, ok = s.Get("missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestPutRejectsInvalid(t *testing.T) {
	s := New()
	bad := validCal("P002")
	bad.LengthR1 = 0
	test.That(t, s.Put(bad), test.ShouldNotBeNil)
	_, ok := s.Get("P002")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestAllIsASnapshot(t *testing.T) {
	s := New()
	test.That(t, s.Put(validCal("A")), test.ShouldBeNil)
	snap := s.All()
	test.That(t, len(snap), test.ShouldEqual, 1)

	test.That(t, s.Put(validCal("B")), test.ShouldBeNil)
	test.That(t, len(snap), test.ShouldEqual, 1)
	test.That(t, len(s.All()), test.ShouldEqual, 2)
}
