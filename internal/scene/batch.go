package scene

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scene.report/internal/monitoring"
)

// Result is the outcome of extracting one scene in a batch. Err is set
// when the scene could not be read at all, such as an empty scene.
// TrajectoryErr is set when the snapshot succeeded but trajectories could
// not be derived, such as a scene of zero duration; Snapshot is kept.
type Result struct {
	Index         int
	Snapshot      *SnapshotContext
	Trajectories  *TrajectoryContext
	Err           error
	TrajectoryErr error
}

// ExtractAll extracts the snapshot and trajectory contexts of each scene in
// indices using at most workers goroutines. Results keep the order of
// indices. Only context cancellation aborts the batch.
func (e *Extractor) ExtractAll(ctx context.Context, indices []int, workers int) ([]Result, error) {
	defer monitoring.Timed(fmt.Sprintf("extract %d scenes", len(indices)))()

	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(indices))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, idx := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := Result{Index: idx}
			r.Snapshot, r.Err = e.Snapshot(idx)
			if r.Err == nil {
				r.Trajectories, r.TrajectoryErr = e.Trajectories(idx)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AllIndices returns 0..NumScenes()-1.
func (e *Extractor) AllIndices() []int {
	n := e.NumScenes()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
