package schedule

import "github.com/pkg/errors"

// Sentinel admission/planning errors, spec §7.
var (
	// ErrDisabled is returned for a request to a disabled positioner.
	ErrDisabled = errors.New("disabled: positioner does not participate in motion")
	// ErrUnreachable is returned when the target is outside the reachable
	// annulus, or outside the wrap-limited range.
	ErrUnreachable = errors.New("unreachable: target outside annulus or wrap-limited range")
	// ErrNeighborTargetInterference is returned when the final (T,P) spatially
	// collides with an already-admitted neighbor target.
	ErrNeighborTargetInterference = errors.New("neighbor target interference")
	// ErrOutOfBounds is returned when the final ferrule position overlaps a
	// fixed boundary.
	ErrOutOfBounds = errors.New("out of bounds: overlaps a fixed boundary")
	// ErrAlreadyRequested is returned for a duplicate posid in one schedule.
	ErrAlreadyRequested = errors.New("positioner already requested in this schedule")
	// ErrUnsolvableCollision is returned per-positioner when the tactic
	// ladder is exhausted without freezing and a collision remains.
	ErrUnsolvableCollision = errors.New("unsolvable collision: tactic ladder exhausted")
	// ErrContinuityFailure indicates a sweep contained an angular jump
	// exceeding the sanity threshold.
	ErrContinuityFailure = errors.New("continuity failure: angular jump exceeds sanity threshold")
)
