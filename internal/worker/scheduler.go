package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/peerwatch/peerwatch/internal/pkg/logger"
)

// Task is one named periodic job. Run is invoked on every tick and must
// honour ctx cancellation.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives registered tasks on fixed intervals, one goroutine per
// task. A task runs to completion before its next tick fires; overlapping
// runs of the same task cannot happen.
type Scheduler struct {
	log   *logger.Logger
	tasks []Task

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with no tasks
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

// Start launches every registered task loop. Calling Start twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started")
	}
	s.running = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(runCtx, t)
	}
	s.log.Infof("scheduler started with %d tasks", len(s.tasks))
	return nil
}

// Stop cancels all task loops and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunTask triggers one named task immediately, outside its schedule
func (s *Scheduler) RunTask(ctx context.Context, name string) error {
	s.mu.Lock()
	var task *Task
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			task = &s.tasks[i]
			break
		}
	}
	s.mu.Unlock()

	if task == nil {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.execute(ctx, *task)
}

// TaskNames lists the registered task names in registration order
func (s *Scheduler) TaskNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name
	}
	return names
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.execute(ctx, t); err != nil {
				s.log.WithError(err).Errorf("task %s failed", t.Name)
			}
		}
	}
}

// execute runs one task invocation with panic containment. A panicking task
// skips the tick, not the process.
func (s *Scheduler) execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, rec)
		}
	}()

	started := time.Now()
	err = t.Run(ctx)
	if err == nil {
		s.log.Debugf("task %s completed in %s", t.Name, time.Since(started))
	}
	return err
}
