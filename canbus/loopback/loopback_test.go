package loopback

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/fpp/movetable"
)

func TestSendTableRecordsFrame(t *testing.T) {
	tr := New()
	rows := []movetable.HardwareRow{{MotorStepsT: 100, MoveTimeSec: 1}}
	test.That(t, tr.SendTable(context.Background(), 7, rows, 1), test.ShouldBeNil)

	sent := tr.Sent()
	test.That(t, len(sent), test.ShouldEqual, 1)
	test.That(t, sent[0].CanID, test.ShouldEqual, uint32(7))
	test.That(t, sent[0].Rows[0].MotorStepsT, test.ShouldEqual, 100)
}

func TestReadyForTablesAlwaysReady(t *testing.T) {
	tr := New()
	ready, err := tr.ReadyForTables(context.Background(), 7, time.Second, time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ready, test.ShouldBeTrue)
}

func TestSyncCountsCalls(t *testing.T) {
	tr := New()
	test.That(t, tr.Sync(context.Background(), false), test.ShouldBeNil)
	test.That(t, tr.Sync(context.Background(), true), test.ShouldBeNil)
	test.That(t, tr.SyncCount(), test.ShouldEqual, 2)
}
