// Package canbus declares the outbound transport boundary of spec §6: the
// interface a petal uses to deliver a hardware move table to a positioner's
// motor controller and to poll for readiness, independent of the physical
// bus. CAN-bus hardware drivers themselves are out of scope per spec §1; a
// real socketcan-backed Transport is not implemented here, only the seam a
// real driver would satisfy — mirroring the teacher's real-vs-fake
// component-driver split (board/pi vs. component/*/fake).
package canbus

import (
	"context"
	"time"

	"go.viam.com/fpp/movetable"
)

// Transport delivers move tables to one positioner's motor controller and
// reports readiness, spec §6 "Outbound interface".
type Transport interface {
	// SendTable transmits the hardware rows under execCode for canid.
	SendTable(ctx context.Context, canid uint32, rows []movetable.HardwareRow, execCode int) error
	// Sync commits (or, if hard, hard-syncs) pending frames on the bus.
	Sync(ctx context.Context, hard bool) error
	// ReadyForTables polls canid for readiness, giving up after timeout.
	ReadyForTables(ctx context.Context, canid uint32, timeout, poll time.Duration) (bool, error)
}
