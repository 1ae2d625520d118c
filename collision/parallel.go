package collision

import (
	"context"
	"sync"

	"go.viam.com/utils"
)

// Pair identifies two placements to spatially check.
type Pair struct {
	Key string
	A   Placement
	B   Placement
}

// PairResult is the outcome of checking one Pair.
type PairResult struct {
	Key       string
	Case      Case
	Collision bool
}

// ParallelSpatialCheck fans out many independent, read-only spatial checks
// at once — spec §5: "parallelism is possible only for independent
// read-only sub-queries of the collider". This must never be used inside
// the sequential adjust-path loop, only for batch checks against fixed,
// already-computed placements (e.g. admission-time neighbor-target
// interference across a batch of candidate requests).
func ParallelSpatialCheck(ctx context.Context, pairs []Pair) []PairResult {
	results := make([]PairResult, len(pairs))
	var wg sync.WaitGroup
	for i, p := range pairs {
		i, p := i, p
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results[i] = PairResult{Key: p.Key}
				return
			default:
			}
			c, collided := SpatialCheck(p.A, p.B)
			results[i] = PairResult{Key: p.Key, Case: c, Collision: collided}
		})
	}
	wg.Wait()
	return results
}
