// Package loopback is an in-memory canbus.Transport fake for tests and
// simulation, recording every frame instead of driving real hardware —
// mirroring the teacher's component/*/fake driver pattern.
package loopback

import (
	"context"
	"sync"
	"time"

	"go.viam.com/fpp/movetable"
)

// Sent records one accepted SendTable call.
type Sent struct {
	CanID    uint32
	Rows     []movetable.HardwareRow
	ExecCode int
}

// Transport is a loopback canbus.Transport: SendTable always succeeds and is
// recorded, ReadyForTables always reports ready immediately.
type Transport struct {
	mu     sync.Mutex
	sent   []Sent
	synced int
}

// New returns an empty loopback Transport.
func New() *Transport {
	return &Transport{}
}

// SendTable implements canbus.Transport.
func (t *Transport) SendTable(_ context.Context, canid uint32, rows []movetable.HardwareRow, execCode int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]movetable.HardwareRow(nil), rows...)
	t.sent = append(t.sent, Sent{CanID: canid, Rows: cp, ExecCode: execCode})
	return nil
}

// Sync implements canbus.Transport.
func (t *Transport) Sync(_ context.Context, _ bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.synced++
	return nil
}

// ReadyForTables implements canbus.Transport; loopback positioners are
// always immediately ready.
func (t *Transport) ReadyForTables(_ context.Context, _ uint32, _, _ time.Duration) (bool, error) {
	return true, nil
}

// Sent returns every frame accepted so far, in send order.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}

// SyncCount returns how many times Sync was called.
func (t *Transport) SyncCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.synced
}
