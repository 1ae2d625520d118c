// Package petal implements the enclosing orchestration object named
// throughout spec §2: one Petal owns a calibration store, the collider
// inputs, a schedule.Schedule for the current planning batch, and the
// outbound canbus.Transport each positioner is delivered over.
package petal

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/fpp/canbus"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/logging"
	"go.viam.com/fpp/movetable"
	"go.viam.com/fpp/schedule"
)

// Positioner bundles the static per-positioner facts a Petal needs beyond
// calibration: its motor timing constants, outbound CAN id, and transport.
type Positioner struct {
	Motor     movetable.MotorParams
	CanID     uint32
	Transport canbus.Transport
}

// Petal is one focal-plane petal's control object: the calibration store,
// fixed keep-out boundaries, supply-group table, and positioner roster of
// spec §5, plus the schedule.Schedule batching the current round of
// requests.
type Petal struct {
	cfg        schedule.Config
	inputs     schedule.PositionerInputs
	positioner map[string]Positioner
	logger     *logging.Logger

	sched *schedule.Schedule
}

// New constructs a Petal and opens a fresh request batch. current supplies
// every known positioner's starting posintTP.
func New(
	cfg schedule.Config,
	inputs schedule.PositionerInputs,
	positioner map[string]Positioner,
	current map[string]kinematics.TP,
	logger *logging.Logger,
) *Petal {
	motors := make(map[string]movetable.MotorParams, len(positioner))
	for posid, p := range positioner {
		motors[posid] = p.Motor
	}
	if logger == nil {
		logger = logging.NewTest()
	}
	return &Petal{
		cfg:        cfg,
		inputs:     inputs,
		positioner: positioner,
		logger:     logger,
		sched:      schedule.NewSchedule(cfg, inputs, motors, current),
	}
}

// RequestTarget forwards one target request to the batch's schedule, spec
// §2's control-flow paragraph ("request_target ... then schedule_moves").
func (p *Petal) RequestTarget(posid string, command schedule.Command, u, v float64, logNote string) error {
	_, err := p.sched.RequestTarget(schedule.Request{
		PosID:   posid,
		Command: command,
		U:       u,
		V:       v,
		LogNote: logNote,
	})
	if err != nil {
		p.logger.Warnw("request_target rejected", "posid", posid, "err", err.Error(), "ts", p.cfg.Now())
	}
	return err
}

// AddTable injects a raw move table for posid, bypassing anti-collision for
// the whole batch, spec §4.5 "add_table".
func (p *Petal) AddTable(posid string, table *movetable.Table, start kinematics.TP) {
	p.sched.AddTable(posid, table, start)
}

// ScheduleMoves plans the current batch and serializes each admitted
// positioner's merged table for hardware delivery, spec §4.5/§6.
func (p *Petal) ScheduleMoves(mode schedule.AnticollisionMode) (map[string]movetable.HardwareTable, map[string]error) {
	tables, diagnostics := p.sched.ScheduleMoves(mode)

	ts := p.cfg.Now()
	diagIDs := make([]string, 0, len(diagnostics))
	for posid := range diagnostics {
		diagIDs = append(diagIDs, posid)
	}
	sort.Strings(diagIDs)
	for _, posid := range diagIDs {
		p.logger.Warnw("schedule_moves diagnostic", "posid", posid, "err", diagnostics[posid].Error(), "ts", ts)
	}

	hw := make(map[string]movetable.HardwareTable, len(tables))
	for posid, table := range tables {
		canID := p.positioner[posid].CanID
		hw[posid] = table.ForHardware(canID)
	}
	return hw, diagnostics
}

// Deliver sends every hardware table to its positioner's transport and syncs
// the bus once all sends are accepted, spec §6's outbound interface
// (SendTable, then Sync). Delivery order is deterministic for reproducible
// logs and tests.
func (p *Petal) Deliver(ctx context.Context, hw map[string]movetable.HardwareTable, execCode int) error {
	posids := make([]string, 0, len(hw))
	for posid := range hw {
		posids = append(posids, posid)
	}
	sort.Strings(posids)

	for _, posid := range posids {
		positioner, ok := p.positioner[posid]
		if !ok || positioner.Transport == nil {
			return errors.Errorf("deliver: no transport configured for positioner %s", posid)
		}
		table := hw[posid]
		if err := positioner.Transport.SendTable(ctx, table.CanID, table.Rows, execCode); err != nil {
			return errors.Wrapf(err, "deliver: send_table %s", posid)
		}
	}
	for _, posid := range posids {
		if err := p.positioner[posid].Transport.Sync(ctx, false); err != nil {
			return errors.Wrapf(err, "deliver: sync %s", posid)
		}
	}
	return nil
}

// Logger returns the petal's configured logger.
func (p *Petal) Logger() *logging.Logger { return p.logger }
