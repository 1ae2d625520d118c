// Package config loads the petal-level configuration of spec §5/§9: supply
// groups, timestep, margins, safe-phi, and the other planner tunables,
// decoded from YAML into a validated schedule.Config.
package config

import (
	"io"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/fpp/schedule"
)

// PetalConfig is the on-disk shape of a petal's configuration file.
type PetalConfig struct {
	TimestepSec              float64             `yaml:"timestep_sec"`
	ClearanceMarginTimesteps int                 `yaml:"clearance_margin_timesteps"`
	SafePhiDeg               float64             `yaml:"safe_phi_deg"`
	JogSmallDeg              float64             `yaml:"jog_small_deg"`
	JogLargeDeg              float64             `yaml:"jog_large_deg"`
	AnnealTimeSec            float64             `yaml:"anneal_time_sec"`
	NeighborDistanceMarginMM float64             `yaml:"neighbor_distance_margin_mm"`
	SupplyGroups             map[string][]string `yaml:"supply_groups"`
}

// Validate checks the invariants a schedule.Config needs to plan safely.
func (c PetalConfig) Validate() error {
	if c.TimestepSec <= 0 {
		return errors.New("timestep_sec must be > 0")
	}
	if c.ClearanceMarginTimesteps < 0 {
		return errors.New("clearance_margin_timesteps must be >= 0")
	}
	if c.AnnealTimeSec < 0 {
		return errors.New("anneal_time_sec must be >= 0")
	}
	if c.NeighborDistanceMarginMM < 0 {
		return errors.New("neighbor_distance_margin_mm must be >= 0")
	}
	return nil
}

// FromReader decodes and validates a PetalConfig from YAML.
func FromReader(r io.Reader) (PetalConfig, error) {
	var raw map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return PetalConfig{}, errors.Wrap(err, "decode petal config yaml")
	}

	var cfg PetalConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return PetalConfig{}, errors.Wrap(err, "build config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return PetalConfig{}, errors.Wrap(err, "decode petal config fields")
	}
	if err := cfg.Validate(); err != nil {
		return PetalConfig{}, errors.Wrap(err, "invalid petal config")
	}
	return cfg, nil
}

// FromFile reads and decodes a PetalConfig from path.
func FromFile(path string) (PetalConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return PetalConfig{}, errors.Wrapf(err, "open petal config %s", path)
	}
	defer f.Close()
	return FromReader(f)
}

// ToScheduleConfig overlays the decoded tunables onto a baseline
// schedule.Config, leaving non-config fields (Clock, Recorder) from base
// untouched — spec §9 OQ2 ("num_timesteps_clearance_margin is a field, not a
// hard-coded constant").
func (c PetalConfig) ToScheduleConfig(base schedule.Config) schedule.Config {
	base.TimestepSec = c.TimestepSec
	base.ClearanceMarginTimesteps = c.ClearanceMarginTimesteps
	base.SafePhiDeg = c.SafePhiDeg
	base.JogSmallDeg = c.JogSmallDeg
	base.JogLargeDeg = c.JogLargeDeg
	base.AnnealTimeSec = c.AnnealTimeSec
	base.NeighborDistanceMarginMM = c.NeighborDistanceMarginMM
	base.SupplyGroups = c.SupplyGroups
	return base
}
