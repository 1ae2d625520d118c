// Command fppsim loads a petal configuration (YAML), a calibration and
// starting-position batch and a batch of target requests (JSON), runs
// scheduling, and prints each positioner's merged move-table row count and
// CAN id — a simulation-only entry point, grounded on the teacher's
// urfave/cli/v2 CLI idiom (rdk's cli/ and examples/customresources command
// shape).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/calib/memstore"
	"go.viam.com/fpp/collision"
	fppconfig "go.viam.com/fpp/config"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/logging"
	"go.viam.com/fpp/movetable"
	"go.viam.com/fpp/petal"
	"go.viam.com/fpp/schedule"
)

// calibrationFile is the on-disk shape of the --calibrations JSON document:
// one entry per positioner, plus its starting posintTP.
type calibrationFile struct {
	PosID  string            `json:"pos_id"`
	Cal    calib.Calibration `json:"calibration"`
	StartT float64           `json:"start_t"`
	StartP float64           `json:"start_p"`
}

// requestFile is one entry of the --requests JSON batch.
type requestFile struct {
	PosID   string  `json:"pos_id"`
	Command string  `json:"command"`
	U       float64 `json:"u"`
	V       float64 `json:"v"`
	LogNote string  `json:"log_note"`
}

var commandNames = map[string]schedule.Command{
	"qs":       schedule.CmdQS,
	"dqds":     schedule.CmdDQdS,
	"obsxy":    schedule.CmdObsXY,
	"posxy":    schedule.CmdPosXY,
	"ptlxy":    schedule.CmdPtlXY,
	"dxdy":     schedule.CmdDXdY,
	"obstp":    schedule.CmdObsTP,
	"posinttp": schedule.CmdPosIntTP,
	"posloctp": schedule.CmdPosLocTP,
	"dtdp":     schedule.CmdDTdP,
}

var modeNames = map[string]schedule.AnticollisionMode{
	"none":            schedule.ModeNone,
	"adjust":          schedule.ModeAdjust,
	"freeze":          schedule.ModeFreeze,
	"forced_recursive": schedule.ModeForcedRecursive,
}

func main() {
	app := &cli.App{
		Name:  "fppsim",
		Usage: "simulate fiber positioner scheduling for one petal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "petal config YAML", Required: true},
			&cli.StringFlag{Name: "calibrations", Usage: "calibration+start-position JSON", Required: true},
			&cli.StringFlag{Name: "requests", Usage: "batch request JSON", Required: true},
			&cli.StringFlag{Name: "mode", Usage: "anticollision mode: none|adjust|freeze|forced_recursive", Value: "adjust"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := logging.New(logging.Info)
	if err != nil {
		return err
	}
	defer logger.Sync()

	petalCfg, err := fppconfig.FromFile(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "load petal config")
	}

	store := memstore.New()
	current := make(map[string]kinematics.TP)
	positioner := make(map[string]petal.Positioner)

	calBytes, err := os.ReadFile(c.String("calibrations"))
	if err != nil {
		return errors.Wrap(err, "read calibrations file")
	}
	var calEntries []calibrationFile
	if err := json.Unmarshal(calBytes, &calEntries); err != nil {
		return errors.Wrap(err, "parse calibrations file")
	}
	for _, entry := range calEntries {
		entry.Cal.PosID = entry.PosID
		if err := store.Put(entry.Cal); err != nil {
			return errors.Wrapf(err, "calibration %s", entry.PosID)
		}
		current[entry.PosID] = kinematics.TP{T: entry.StartT, P: entry.StartP}
		positioner[entry.PosID] = petal.Positioner{
			Motor: movetable.DefaultMotorParams(),
			CanID: 0,
		}
	}

	mode, ok := modeNames[c.String("mode")]
	if !ok {
		return errors.Errorf("unknown mode %q", c.String("mode"))
	}

	cfg := petalCfg.ToScheduleConfig(schedule.DefaultConfig())
	inputs := schedule.PositionerInputs{Store: store, Graph: &collision.NeighborGraph{}}
	p := petal.New(cfg, inputs, positioner, current, logger)

	reqBytes, err := os.ReadFile(c.String("requests"))
	if err != nil {
		return errors.Wrap(err, "read requests file")
	}
	var requests []requestFile
	if err := json.Unmarshal(reqBytes, &requests); err != nil {
		return errors.Wrap(err, "parse requests file")
	}
	for _, req := range requests {
		cmd, ok := commandNames[req.Command]
		if !ok {
			return errors.Errorf("posid %s: unknown command %q", req.PosID, req.Command)
		}
		if err := p.RequestTarget(req.PosID, cmd, req.U, req.V, req.LogNote); err != nil {
			logger.Warnw("request rejected", "posid", req.PosID, "err", err.Error())
		}
	}

	hw, diagnostics := p.ScheduleMoves(mode)
	for posid, diagErr := range diagnostics {
		fmt.Fprintf(os.Stderr, "posid %s: %v\n", posid, diagErr)
	}
	for posid, table := range hw {
		fmt.Printf("%s: %d rows, canid=%d\n", posid, table.Nrows(), table.CanID)
	}
	return nil
}
