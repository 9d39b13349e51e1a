package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"requestarr/internal/requests"
	"requestarr/internal/scheduler"
	"requestarr/internal/services"
	"requestarr/internal/testsupport"
)

type countingRunner struct {
	calls atomic.Int64
	err   error
}

func (r *countingRunner) Run(ctx context.Context, trigger requests.TriggerKind) (*requests.SyncLog, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &requests.SyncLog{TriggeredBy: trigger, Outcome: requests.OutcomeSuccess}, nil
}

func waitForCalls(t *testing.T, runner *countingRunner, want int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if runner.calls.Load() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d runs, saw %d", want, runner.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerTicks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}
	sched := scheduler.New(cfg, runner, nil)
	sched.SetInterval(10 * time.Millisecond)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop()

	waitForCalls(t, runner, 2)
}

func TestSchedulerSurvivesRunFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{err: services.ErrSyncAlreadyRunning}
	sched := scheduler.New(cfg, runner, nil)
	sched.SetInterval(10 * time.Millisecond)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop()

	waitForCalls(t, runner, 3)
}

func TestSchedulerStartTwice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sched := scheduler.New(cfg, &countingRunner{}, nil)
	sched.SetInterval(time.Hour)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop()

	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestSchedulerStopHaltsTicks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}
	sched := scheduler.New(cfg, runner, nil)
	sched.SetInterval(10 * time.Millisecond)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForCalls(t, runner, 1)
	sched.Stop()

	settled := runner.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if runner.calls.Load() != settled {
		t.Fatal("expected no ticks after Stop")
	}
}
