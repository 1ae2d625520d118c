package config

import (
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/schedule"
)

const sampleYAML = `
timestep_sec: 0.02
clearance_margin_timesteps: 3
safe_phi_deg: 140
jog_small_deg: 3
jog_large_deg: 10
anneal_time_sec: 2.5
neighbor_distance_margin_mm: 1.5
supply_groups:
  A: ["p1", "p2"]
  B: ["p3"]
`

func TestFromReaderDecodesAndValidates(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(sampleYAML))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.TimestepSec, test.ShouldEqual, 0.02)
	test.That(t, cfg.ClearanceMarginTimesteps, test.ShouldEqual, 3)
	test.That(t, cfg.SafePhiDeg, test.ShouldEqual, 140.0)
	test.That(t, len(cfg.SupplyGroups["A"]), test.ShouldEqual, 2)
}

func TestFromReaderRejectsInvalidTimestep(t *testing.T) {
	_, err := FromReader(strings.NewReader("timestep_sec: 0\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestToScheduleConfigOverlaysTunablesOnly(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(sampleYAML))
	test.That(t, err, test.ShouldBeNil)

	base := schedule.DefaultConfig()
	merged := cfg.ToScheduleConfig(base)

	test.That(t, merged.TimestepSec, test.ShouldEqual, 0.02)
	test.That(t, merged.Clock, test.ShouldEqual, base.Clock)
}
