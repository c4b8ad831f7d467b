package worker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Job processes a single task. index is the task's position in the input slice.
type Job[T, R any] func(ctx context.Context, index int, task T) (R, error)

type task[T any] struct {
	Index int
	Data  T
}

type result[R any] struct {
	Index int
	Value R
}

// Pool runs jobs on a fixed number of goroutines and hands results back in input order.
type Pool struct {
	NumWorkers int
}

// New returns a Pool with numWorkers goroutines (at least one).
func New(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{NumWorkers: numWorkers}
}

// Run executes job for every task and returns the results in input order.
//
// onResult, if not nil, is called from a single goroutine in strict input order as
// results become contiguous, regardless of which worker finished first.
// The first job error cancels the remaining work and is returned once every worker has
// stopped. No partial result slice is returned on failure.
func Run[T, R any](ctx context.Context, p *Pool, tasks []T, job Job[T, R], onResult func(index int, r R)) ([]R, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numWorkers := p.NumWorkers
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	taskChan := make(chan task[T], numWorkers)
	resultsChan := make(chan result[R], numWorkers*2)

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	// Aggregator: must run concurrently to prevent deadlock on resultsChan.
	results := make([]R, len(tasks))
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		buffer := make(map[int]R)
		next := 0
		for res := range resultsChan {
			results[res.Index] = res.Value
			buffer[res.Index] = res.Value
			for {
				v, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				if onResult != nil {
					onResult(next, v)
				}
				next++
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range taskChan {
				if ctx.Err() != nil {
					continue // drain
				}
				v, err := job(ctx, t.Index, t.Data)
				if err != nil {
					klog.V(1).Infof("worker %d: task %d failed: %v", workerID, t.Index, err)
					fail(err)
					continue
				}
				resultsChan <- result[R]{Index: t.Index, Value: v}
			}
		}(i)
	}

feed:
	for i, data := range tasks {
		select {
		case <-ctx.Done():
			break feed
		case taskChan <- task[T]{Index: i, Data: data}:
		}
	}
	close(taskChan)
	wg.Wait()
	close(resultsChan)
	<-aggDone

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		// Parent context was cancelled before every task ran.
		return nil, errors.Wrap(err, "worker pool interrupted")
	}
	return results, nil
}
