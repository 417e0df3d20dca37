package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Stage is one independently-failing enrichment transform.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// StageResult is the structured outcome of one stage in a settle-all group.
type StageResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the stage completed without error.
func (r StageResult) Succeeded() bool { return r.Err == nil }

// settleAll runs every stage concurrently and waits for all of them to
// finish, success or failure. No stage can abort a sibling: each gets its
// own timeout context, and panics are converted into stage errors. Results
// are returned in stage order.
func settleAll(ctx context.Context, timeout time.Duration, stages []Stage) []StageResult {
	results := make([]StageResult, len(stages))

	var wg sync.WaitGroup
	for i, stage := range stages {
		wg.Add(1)
		go func(i int, stage Stage) {
			defer wg.Done()

			stageCtx := ctx
			var cancel context.CancelFunc
			if timeout > 0 {
				stageCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			err := runStage(stageCtx, stage)
			results[i] = StageResult{
				Name:     stage.Name,
				Err:      err,
				Duration: time.Since(start),
			}
		}(i, stage)
	}
	wg.Wait()

	return results
}

func runStage(ctx context.Context, stage Stage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.Name, r)
		}
	}()
	return stage.Run(ctx)
}
