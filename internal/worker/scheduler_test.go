package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "fatal"})
}

func TestSchedulerRunsTasksOnInterval(t *testing.T) {
	s := NewScheduler(testLogger())
	var runs int64
	s.Register(Task{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt64(&runs); got < 2 {
		t.Errorf("task ran %d times, want at least 2", got)
	}
}

func TestSchedulerStartTwiceFails(t *testing.T) {
	s := NewScheduler(testLogger())
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()
	if err := s.Start(ctx); err == nil {
		t.Error("second start should fail")
	}
}

func TestRunTaskTriggersDirectly(t *testing.T) {
	s := NewScheduler(testLogger())
	var runs int64
	s.Register(Task{
		Name:     "sweep",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	if err := s.RunTask(context.Background(), "sweep"); err != nil {
		t.Fatalf("run task failed: %v", err)
	}
	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("task ran %d times, want 1", runs)
	}

	if err := s.RunTask(context.Background(), "missing"); err == nil {
		t.Error("unknown task name should fail")
	}
}

func TestSchedulerContainsPanics(t *testing.T) {
	s := NewScheduler(testLogger())
	s.Register(Task{
		Name:     "explode",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			panic("boom")
		},
	})

	err := s.RunTask(context.Background(), "explode")
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
}

func TestSchedulerTaskErrorsDoNotStopLoop(t *testing.T) {
	s := NewScheduler(testLogger())
	var runs int64
	s.Register(Task{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return fmt.Errorf("transient")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt64(&runs); got < 2 {
		t.Errorf("failing task ran %d times, want it to keep running", got)
	}
}

func TestTaskNames(t *testing.T) {
	s := NewScheduler(testLogger())
	s.Register(Task{Name: "a", Interval: time.Hour, Run: func(ctx context.Context) error { return nil }})
	s.Register(Task{Name: "b", Interval: time.Hour, Run: func(ctx context.Context) error { return nil }})

	names := s.TaskNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("task names = %v", names)
	}
}
