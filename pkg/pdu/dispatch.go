package pdu

import (
	"context"
	"sync"

	"github.com/cznic/mathutil"
	"github.com/rs/zerolog/log"
)

// Dispatcher fans a Plan out to one worker per Target, waits for all
// of them, and merges the per-Target reports back into declaration
// order. Concurrency only affects wall-clock time; the Report order
// is always (Target declaration order, Operation order).
type Dispatcher struct {
	Exec OperationExecutor
	// Concurrency caps the number of Targets in flight. Zero or
	// negative means one worker per Target.
	Concurrency int
}

// Dispatch runs every Target's operations and joins the results. It
// never short-circuits: a failing Target cannot prevent the others
// from completing or being reported.
func (d *Dispatcher) Dispatch(ctx context.Context, plan *Plan) *Report {
	n := len(plan.Targets)
	if n == 0 {
		return &Report{}
	}
	workers := d.Concurrency
	if workers <= 0 {
		workers = n
	}
	workers = mathutil.Clamp(workers, 1, n)

	type job struct {
		idx int
		tp  TargetPlan
	}

	// Each worker writes only to its job's slot, so the merge needs no
	// locking beyond the join barrier.
	reports := make([]TargetReport, n)
	jobs := make(chan job, workers+1)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			for {
				j, ok := <-jobs
				if !ok {
					wg.Done()
					return
				}
				log.Debug().
					Str("target", j.tp.Target.Host).
					Int("operations", len(j.tp.Operations)).
					Msg("dispatching operations to target")
				reports[j.idx] = runTarget(ctx, d.Exec, j.tp)
			}
		}()
	}

	for i, tp := range plan.Targets {
		jobs <- job{idx: i, tp: tp}
	}
	close(jobs)
	wg.Wait()

	return &Report{Targets: reports}
}
