// Package track computes the ground track of a record window: one geodetic
// point per state vector, evaluated in parallel by a fixed worker pool.
package track

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/transform"
)

// Point is one ground-track sample.
type Point struct {
	Epoch    string             `json:"epoch"`
	Location transform.Geodetic `json:"location"`
}

// trackJob is a unit of work: one record, tagged with its window index so
// results can be reassembled in sequence order.
type trackJob struct {
	index  int
	vector ephem.StateVector
}

type trackResult struct {
	index int
	point Point
	err   error
}

// Computer runs ground-track computations on a fixed number of goroutines.
type Computer struct {
	workers int
	logger  *slog.Logger
}

// NewComputer creates a Computer with the given worker count.
func NewComputer(workers int, logger *slog.Logger) *Computer {
	if workers < 1 {
		workers = 1
	}
	return &Computer{
		workers: workers,
		logger:  logger,
	}
}

// GroundTrack transforms every record in the window to a geodetic point.
// Output preserves the window's order. Records whose transform fails (bad
// epoch, polar axis, NaN position) are skipped with a warning and counted in
// the second return value.
func (c *Computer) GroundTrack(ctx context.Context, vectors []ephem.StateVector) ([]Point, int) {
	if len(vectors) == 0 {
		return nil, 0
	}

	jobs := make(chan trackJob, c.workers*2)
	results := make(chan trackResult, c.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				geo, err := transform.ToGeodetic(job.vector.X, job.vector.Y, job.vector.Z, job.vector.Epoch)
				res := trackResult{index: job.index, err: err}
				if err == nil {
					res.point = Point{Epoch: job.vector.Epoch, Location: geo}
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range vectors {
			select {
			case jobs <- trackJob{index: i, vector: vectors[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Reassemble by window index; holes mark failed records.
	ordered := make([]*Point, len(vectors))
	var errorCount int
	for res := range results {
		if res.err != nil {
			errorCount++
			c.logger.Warn("ground track point failed",
				"epoch", vectors[res.index].Epoch,
				"error", res.err,
			)
			continue
		}
		p := res.point
		ordered[res.index] = &p
	}

	points := make([]Point, 0, len(vectors)-errorCount)
	for _, p := range ordered {
		if p != nil {
			points = append(points, *p)
		}
	}
	return points, errorCount
}
