package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Common errors returned by the Executor
var (
	// ErrClosed is returned for submissions after Shutdown.
	ErrClosed = errors.New("executor is shut down")

	// ErrTaskTimeout is returned when a task exceeds the per-task timeout.
	// The underlying call is abandoned, not interrupted.
	ErrTaskTimeout = errors.New("task timed out")
)

// Task is a unit of outbound work dispatched through the executor.
type Task func(ctx context.Context) (string, error)

// Result is one slot of a batch submission. A task that failed or timed out
// carries its error here without affecting sibling slots.
type Result struct {
	Value string
	Err   error
}

// Config holds the executor's admission-control settings.
type Config struct {
	// MaxConcurrent caps the number of tasks executing at once.
	MaxConcurrent int

	// RateLimit is the maximum number of admissions per sliding Window.
	RateLimit int

	// Window is the length of the sliding rate window.
	Window time.Duration

	// TaskTimeout bounds each dispatched task.
	TaskTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 5,
		RateLimit:     100,
		Window:        time.Minute,
		TaskTimeout:   5 * time.Second,
	}
}

// Executor bounds concurrent outbound calls with a fixed worker capacity and
// enforces a request-rate ceiling over a sliding time window. The rate log
// has its own lock, distinct from everything else in the system, so
// admission control never serializes unrelated traffic.
type Executor struct {
	sem     chan struct{}
	window  *slidingWindow
	timeout time.Duration
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an Executor with the specified configuration. Invalid values
// fall back to defaults with a warning.
func New(cfg Config, logger *slog.Logger) *Executor {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		logger.Warn("invalid max concurrent specified, using default",
			"specified", cfg.MaxConcurrent,
			"default", def.MaxConcurrent)
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.RateLimit <= 0 {
		logger.Warn("invalid rate limit specified, using default",
			"specified", cfg.RateLimit,
			"default", def.RateLimit)
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}

	return &Executor{
		sem: make(chan struct{}, cfg.MaxConcurrent),
		window: &slidingWindow{
			limit:  cfg.RateLimit,
			window: cfg.Window,
			now:    time.Now,
		},
		timeout: cfg.TaskTimeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Submit blocks until both admission conditions hold — a free worker slot
// and room in the sliding rate window — then runs the task bounded by the
// per-task timeout. A timed-out task's underlying call keeps running in the
// background; its result is discarded.
func (e *Executor) Submit(ctx context.Context, task Task) (string, error) {
	if err := e.window.wait(ctx, e.done); err != nil {
		return "", err
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-e.done:
		return "", ErrClosed
	}
	defer func() { <-e.sem }()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		value string
		err   error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		value, err := task(callCtx)
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			e.logger.Warn("task exceeded timeout, abandoning", "timeout", e.timeout)
			return "", ErrTaskTimeout
		}
		return "", callCtx.Err()
	case <-e.done:
		return "", ErrClosed
	}
}

// SubmitBatch dispatches every task through Submit concurrently and collects
// results preserving the input order, regardless of completion order. One
// task's failure or timeout never aborts its siblings.
func (e *Executor) SubmitBatch(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			value, err := e.Submit(ctx, task)
			results[i] = Result{Value: value, Err: err}
		}(i, task)
	}
	wg.Wait()

	return results
}

// Shutdown abandons outstanding submissions. Already-started tasks may run
// to completion in the background but their results are discarded.
func (e *Executor) Shutdown() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.logger.Info("executor shut down")
	})
}

// slidingWindow is a time-bounded admission log: timestamps older than the
// window length are discarded before each check.
type slidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// wait blocks until the window has room, then records an admission. When the
// window is full, the wait is exactly the time until the oldest admission
// ages out, clamped at zero.
func (w *slidingWindow) wait(ctx context.Context, done <-chan struct{}) error {
	for {
		w.mu.Lock()
		now := w.now()

		idx := 0
		for idx < len(w.stamps) && now.Sub(w.stamps[idx]) > w.window {
			idx++
		}
		w.stamps = w.stamps[idx:]

		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}

		waitFor := w.window - now.Sub(w.stamps[0])
		w.mu.Unlock()

		if waitFor < 0 {
			waitFor = 0
		}

		timer := time.NewTimer(waitFor)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-done:
			timer.Stop()
			return ErrClosed
		}
	}
}
