package scheduler

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := New()
	if err := s.AddJob("reminders", "0 8 * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("recovery", "@every 5m", func() {}); err != nil {
		t.Errorf("Expected descriptor to be accepted, got %v", err)
	}
	if err := s.AddJob("reminders", "* * * * *", func() {}); err == nil {
		t.Error("Expected duplicate job name to be rejected")
	}
	if err := s.AddJob("bad", "not a schedule", func() {}); err == nil {
		t.Error("Expected invalid expression to be rejected")
	}
	// Seconds field is not part of the 5-field format.
	if err := s.AddJob("seconds", "0 0 8 * * *", func() {}); err == nil {
		t.Error("Expected 6-field expression to be rejected")
	}

	if got, want := s.Jobs(), []string{"recovery", "reminders"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Jobs() = %v, want %v", got, want)
	}
	s.Remove("recovery")
	s.Remove("missing")
	if got := s.Jobs(); len(got) != 1 || got[0] != "reminders" {
		t.Errorf("Jobs() after Remove = %v", got)
	}
}

func TestSchedulerRunsAndRecovers(t *testing.T) {
	s := New()
	var runs, panics atomic.Int32
	if err := s.AddJob("counter", "@every 1s", func() { runs.Add(1) }); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.AddJob("panicky", "@every 1s", func() {
		panics.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	if runs.Load() < 1 {
		t.Errorf("Expected counter job to run, got %d runs", runs.Load())
	}
	// A panic must not leave the job marked as still running.
	if panics.Load() < 3 {
		t.Errorf("Expected panicking job to be recovered and rerun, got %d runs", panics.Load())
	}
}

func TestSchedulerStopTimeout(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s.AddJob("slow", "@every 1s", func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	s.Start()
	defer close(release)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("slow job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	s.Stop(ctx)
	if time.Since(begin) > time.Second {
		t.Errorf("Stop should give up when ctx expires, took %v", time.Since(begin))
	}
}
