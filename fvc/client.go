// Package fvc declares the fiber-view-camera collaborator boundary of spec
// §6. The camera pipeline itself (image capture, centroiding, astrometric
// solve) is out of scope per spec §1 — this package exists only so higher
// layers (e.g. a petal's closed-loop convergence routine) can depend on a
// narrow interface rather than a concrete camera client, mirroring the
// teacher's thin gRPC component-client pattern (components/camera).
package fvc

import (
	"context"

	"go.viam.com/fpp/spatialmath"
)

// Client measures the observed focal-plane position of a batch of fibers.
type Client interface {
	// MeasureFiberPositions returns the observed obsXY position of every
	// positioner in posids that the camera was able to locate; positioners
	// it could not find are simply absent from the result.
	MeasureFiberPositions(ctx context.Context, posids []string) (map[string]spatialmath.Vector2, error)
}
