// Package stats implements the optional statistics recorder of spec §2
// ("Statistics recorder", 5%, optional): counts of collisions found and
// resolved per tactic, consulted by the schedule's adjust-path loop and
// exposed as a point-in-time snapshot.
//
// No metrics library appears anywhere in the retrieval pack's go.mod (the
// teacher's own runtime telemetry, ftdc/, is a bespoke structured-diagnostic
// format, not a counter library), so this package follows that same shape: a
// mutex-guarded counter map behind a narrow interface, snapshotted on demand
// rather than pushed to a collector.
package stats

import "sync"

// Stats is a point-in-time snapshot of recorded counts.
type Stats struct {
	CollisionsFound    map[string]int // keyed by Case string
	TacticsAttempted   map[string]int // keyed by tactic name
	TacticsAccepted    map[string]int
	PositionersFrozen  int
	UnsolvedCollisions int
}

// Recorder is consulted by the schedule's adjust-path loop and find-collision
// pass. Calling a method on a nil Recorder panics; schedule.Config treats a
// nil Recorder field as Noop, so its call sites never hold a nil one.
// Counters below is the concrete in-memory implementation.
type Recorder interface {
	CollisionFound(caseLabel string)
	TacticAttempted(tactic string)
	TacticAccepted(tactic string)
	PositionerFrozen()
	UnsolvableCollision()
	Snapshot() Stats
}

// Counters is the default in-memory Recorder.
type Counters struct {
	mu                 sync.Mutex
	collisionsFound    map[string]int
	tacticsAttempted   map[string]int
	tacticsAccepted    map[string]int
	positionersFrozen  int
	unsolvedCollisions int
}

// NewCounters returns an empty Counters recorder.
func NewCounters() *Counters {
	return &Counters{
		collisionsFound:  make(map[string]int),
		tacticsAttempted: make(map[string]int),
		tacticsAccepted:  make(map[string]int),
	}
}

// CollisionFound increments the count for caseLabel (e.g. "II", "IIIA", "GFA").
func (c *Counters) CollisionFound(caseLabel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collisionsFound[caseLabel]++
}

// TacticAttempted increments the count for a tactic proposed (whether or not
// it was ultimately accepted).
func (c *Counters) TacticAttempted(tactic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tacticsAttempted[tactic]++
}

// TacticAccepted increments the count for a tactic whose proposal was
// accepted (introduced no new collision, or was force-accepted).
func (c *Counters) TacticAccepted(tactic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tacticsAccepted[tactic]++
}

// PositionerFrozen increments the count of positioners frozen across all
// stages planned with this recorder.
func (c *Counters) PositionerFrozen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positionersFrozen++
}

// UnsolvableCollision increments the count of per-positioner diagnostics
// returned as ErrUnsolvableCollision.
func (c *Counters) UnsolvableCollision() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsolvedCollisions++
}

// Snapshot returns a deep copy of the current counts.
func (c *Counters) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Stats{
		CollisionsFound:    make(map[string]int, len(c.collisionsFound)),
		TacticsAttempted:   make(map[string]int, len(c.tacticsAttempted)),
		TacticsAccepted:    make(map[string]int, len(c.tacticsAccepted)),
		PositionersFrozen:  c.positionersFrozen,
		UnsolvedCollisions: c.unsolvedCollisions,
	}
	for k, v := range c.collisionsFound {
		out.CollisionsFound[k] = v
	}
	for k, v := range c.tacticsAttempted {
		out.TacticsAttempted[k] = v
	}
	for k, v := range c.tacticsAccepted {
		out.TacticsAccepted[k] = v
	}
	return out
}

// noop is a Recorder that discards everything, used when schedule.Config
// carries no Recorder so call sites never need a nil check.
type noop struct{}

// Noop is the always-safe no-op Recorder.
var Noop Recorder = noop{}

func (noop) CollisionFound(string)     {}
func (noop) TacticAttempted(string)    {}
func (noop) TacticAccepted(string)     {}
func (noop) PositionerFrozen()         {}
func (noop) UnsolvableCollision()      {}
func (noop) Snapshot() Stats           { return Stats{} }
