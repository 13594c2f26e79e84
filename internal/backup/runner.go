package backup

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Runner executes tasks on their own goroutines, detached from the caller.
// Panics are recovered and every outcome is logged; nothing is retried.
type Runner struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRunner creates a Runner that logs to logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Go starts task in the background and returns immediately.
func (r *Runner) Go(name string, task Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()

		err := r.run(task)

		attrs := []any{
			slog.String("task", name),
			slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
		}
		if err != nil {
			r.logger.Error("background task failed", append(attrs, slog.String("error", err.Error()))...)
			return
		}
		r.logger.Info("background task finished", attrs...)
	}()
}

func (r *Runner) run(task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("background task panicked", slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return task(context.Background())
}

// Wait blocks until all started tasks have returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
