// Package persistence implements calib.Store against a document database,
// per spec §6's "persisted calibration format" — a read-mostly adapter the
// scheduler consults through the same interface as calib/memstore.
package persistence

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.viam.com/fpp/calib"
)

// collection is the narrow subset of *mongo.Collection's method set this
// package needs. *mongo.Collection satisfies it structurally; tests can
// supply a fake without standing up a live MongoDB instance.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// record is the bson document shape one Calibration is persisted as.
type record struct {
	PosID string `bson:"pos_id"`

	LengthR1 float64 `bson:"length_r1"`
	LengthR2 float64 `bson:"length_r2"`

	OffsetT float64 `bson:"offset_t"`
	OffsetP float64 `bson:"offset_p"`

	OffsetX float64 `bson:"offset_x"`
	OffsetY float64 `bson:"offset_y"`

	GearCalibT float64 `bson:"gear_calib_t"`
	GearCalibP float64 `bson:"gear_calib_p"`

	PhysicalRangeT   rangeRecord `bson:"physical_range_t"`
	PhysicalRangeP   rangeRecord `bson:"physical_range_p"`
	TargetableRangeT rangeRecord `bson:"targetable_range_t"`
	TargetableRangeP rangeRecord `bson:"targetable_range_p"`

	CtrlEnabled bool `bson:"ctrl_enabled"`

	PrincipleHardstopDirectionT int `bson:"principle_hardstop_direction_t"`

	AntibacklashOnT bool    `bson:"antibacklash_on_t"`
	AntibacklashOnP bool    `bson:"antibacklash_on_p"`
	BacklashT       float64 `bson:"backlash_t"`
	BacklashP       float64 `bson:"backlash_p"`
	PreferredDirT   int     `bson:"preferred_dir_t"`
	PreferredDirP   int     `bson:"preferred_dir_p"`

	CreepToLimitsT    bool    `bson:"creep_to_limits_t"`
	CreepToLimitsP    bool    `bson:"creep_to_limits_p"`
	CreepPeriodT      float64 `bson:"creep_period_t"`
	CreepPeriodP      float64 `bson:"creep_period_p"`
	SpinupdownPeriodT float64 `bson:"spinupdown_period_t"`
	SpinupdownPeriodP float64 `bson:"spinupdown_period_p"`

	CurrentSpinupT float64 `bson:"current_spinup_t"`
	CurrentCruiseT float64 `bson:"current_cruise_t"`
	CurrentCreepT  float64 `bson:"current_creep_t"`
	CurrentHoldT   float64 `bson:"current_hold_t"`
	CurrentSpinupP float64 `bson:"current_spinup_p"`
	CurrentCruiseP float64 `bson:"current_cruise_p"`
	CurrentCreepP  float64 `bson:"current_creep_p"`
	CurrentHoldP   float64 `bson:"current_hold_p"`
}

type rangeRecord struct {
	Min float64 `bson:"min"`
	Max float64 `bson:"max"`
}

func toRecord(c calib.Calibration) record {
	return record{
		PosID:                       c.PosID,
		LengthR1:                    c.LengthR1,
		LengthR2:                    c.LengthR2,
		OffsetT:                     c.OffsetT,
		OffsetP:                     c.OffsetP,
		OffsetX:                     c.OffsetX,
		OffsetY:                     c.OffsetY,
		GearCalibT:                  c.GearCalibT,
		GearCalibP:                  c.GearCalibP,
		PhysicalRangeT:              rangeRecord{c.PhysicalRangeT.Min, c.PhysicalRangeT.Max},
		PhysicalRangeP:              rangeRecord{c.PhysicalRangeP.Min, c.PhysicalRangeP.Max},
		TargetableRangeT:            rangeRecord{c.TargetableRangeT.Min, c.TargetableRangeT.Max},
		TargetableRangeP:            rangeRecord{c.TargetableRangeP.Min, c.TargetableRangeP.Max},
		CtrlEnabled:                 c.CtrlEnabled,
		PrincipleHardstopDirectionT: c.PrincipleHardstopDirectionT,
		AntibacklashOnT:             c.AntibacklashOnT,
		AntibacklashOnP:             c.AntibacklashOnP,
		BacklashT:                   c.BacklashT,
		BacklashP:                   c.BacklashP,
		PreferredDirT:               c.PreferredDirT,
		PreferredDirP:               c.PreferredDirP,
		CreepToLimitsT:              c.CreepToLimitsT,
		CreepToLimitsP:              c.CreepToLimitsP,
		CreepPeriodT:                c.CreepPeriodT,
		CreepPeriodP:                c.CreepPeriodP,
		SpinupdownPeriodT:           c.SpinupdownPeriodT,
		SpinupdownPeriodP:           c.SpinupdownPeriodP,
		CurrentSpinupT:              c.CurrentSpinupT,
		CurrentCruiseT:              c.CurrentCruiseT,
		CurrentCreepT:               c.CurrentCreepT,
		CurrentHoldT:                c.CurrentHoldT,
		CurrentSpinupP:              c.CurrentSpinupP,
		CurrentCruiseP:              c.CurrentCruiseP,
		CurrentCreepP:               c.CurrentCreepP,
		CurrentHoldP:                c.CurrentHoldP,
	}
}

func fromRecord(r record) calib.Calibration {
	return calib.Calibration{
		PosID:                       r.PosID,
		LengthR1:                    r.LengthR1,
		LengthR2:                    r.LengthR2,
		OffsetT:                     r.OffsetT,
		OffsetP:                     r.OffsetP,
		OffsetX:                     r.OffsetX,
		OffsetY:                     r.OffsetY,
		GearCalibT:                  r.GearCalibT,
		GearCalibP:                  r.GearCalibP,
		PhysicalRangeT:              calib.Range{Min: r.PhysicalRangeT.Min, Max: r.PhysicalRangeT.Max},
		PhysicalRangeP:              calib.Range{Min: r.PhysicalRangeP.Min, Max: r.PhysicalRangeP.Max},
		TargetableRangeT:            calib.Range{Min: r.TargetableRangeT.Min, Max: r.TargetableRangeT.Max},
		TargetableRangeP:            calib.Range{Min: r.TargetableRangeP.Min, Max: r.TargetableRangeP.Max},
		CtrlEnabled:                 r.CtrlEnabled,
		PrincipleHardstopDirectionT: r.PrincipleHardstopDirectionT,
		AntibacklashOnT:             r.AntibacklashOnT,
		AntibacklashOnP:             r.AntibacklashOnP,
		BacklashT:                   r.BacklashT,
		BacklashP:                   r.BacklashP,
		PreferredDirT:               r.PreferredDirT,
		PreferredDirP:               r.PreferredDirP,
		CreepToLimitsT:              r.CreepToLimitsT,
		CreepToLimitsP:              r.CreepToLimitsP,
		CreepPeriodT:                r.CreepPeriodT,
		CreepPeriodP:                r.CreepPeriodP,
		SpinupdownPeriodT:           r.SpinupdownPeriodT,
		SpinupdownPeriodP:           r.SpinupdownPeriodP,
		CurrentSpinupT:              r.CurrentSpinupT,
		CurrentCruiseT:              r.CurrentCruiseT,
		CurrentCreepT:               r.CurrentCreepT,
		CurrentHoldT:                r.CurrentHoldT,
		CurrentSpinupP:              r.CurrentSpinupP,
		CurrentCruiseP:              r.CurrentCruiseP,
		CurrentCreepP:               r.CurrentCreepP,
		CurrentHoldP:                r.CurrentHoldP,
	}
}

// MongoBackedStore implements calib.Store against a document collection.
// Writes go through ReplaceOne with upsert so Put is idempotent; the
// scheduler itself never calls Put (§6 "the scheduler only reads") — this
// exists for the offline calibration-loading tooling that populates it.
type MongoBackedStore struct {
	coll collection
}

// NewMongoBackedStore wraps coll, typically a *mongo.Collection.
func NewMongoBackedStore(coll collection) *MongoBackedStore {
	return &MongoBackedStore{coll: coll}
}

// Get implements calib.Store.
func (s *MongoBackedStore) Get(posid string) (calib.Calibration, bool) {
	var r record
	err := s.coll.FindOne(context.Background(), bson.M{"pos_id": posid}).Decode(&r)
	if err != nil {
		return calib.Calibration{}, false
	}
	return fromRecord(r), true
}

// Put implements calib.Store.
func (s *MongoBackedStore) Put(c calib.Calibration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(
		context.Background(),
		bson.M{"pos_id": c.PosID},
		toRecord(c),
		options.Replace().SetUpsert(true),
	)
	return errors.Wrapf(err, "persist calibration %s", c.PosID)
}

// All implements calib.Store.
func (s *MongoBackedStore) All() map[string]calib.Calibration {
	cur, err := s.coll.Find(context.Background(), bson.M{})
	if err != nil {
		return map[string]calib.Calibration{}
	}
	defer cur.Close(context.Background())

	out := make(map[string]calib.Calibration)
	for cur.Next(context.Background()) {
		var r record
		if err := cur.Decode(&r); err != nil {
			continue
		}
		out[r.PosID] = fromRecord(r)
	}
	return out
}
