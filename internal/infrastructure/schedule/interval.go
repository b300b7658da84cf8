package schedule

import (
	"context"
	"time"

	"depradar/internal/ports"
)

// IntervalRunner triggers the pipeline immediately and then on a fixed
// interval until stopped. Each run is a complete batch; there is no overlap
// guard beyond runs sharing one goroutine.
type IntervalRunner struct {
	every time.Duration
	stop  chan struct{}
}

var _ ports.Runner = (*IntervalRunner)(nil)

// NewIntervalRunner builds a runner for the given period.
func NewIntervalRunner(every time.Duration) *IntervalRunner {
	return &IntervalRunner{every: every}
}

// Start begins ticking. Calling Start twice without Stop is a no-op.
func (r *IntervalRunner) Start(ctx context.Context, job func(context.Context)) error {
	if job == nil || r.stop != nil {
		return nil
	}

	r.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.every)
		defer ticker.Stop()
		job(ctx)
		for {
			select {
			case <-ticker.C:
				job(ctx)
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (r *IntervalRunner) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	r.stop = nil
	return nil
}
