package engine

import (
	"context"
	"testing"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/configsnap"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

func TestFlowContextOutcomeLookupByName(t *testing.T) {
	fc := NewFlowContext(context.Background(), nil, time.Now().Add(time.Minute), RequestOptions{})
	fc.initNodeOutcomes([]string{"a", "b"})
	fc.setNodeOutcome(0, outcome.NewOk[any]("first"))
	fc.setNodeOutcome(1, outcome.NewError[any]("BOOM"))

	o, ok := fc.Outcome("a")
	if !ok || o.Kind() != outcome.Ok || o.Value() != "first" {
		t.Fatalf("Outcome(a) = (%v, %v), want Ok(first)", o, ok)
	}
	o, ok = fc.Outcome("b")
	if !ok || o.Kind() != outcome.Error || o.Code() != "BOOM" {
		t.Fatalf("Outcome(b) = (%v, %v), want Error(BOOM)", o, ok)
	}
	if _, ok := fc.Outcome("missing"); ok {
		t.Error("Outcome(missing) ok = true, want false")
	}
}

func TestFlowContextDeadlineExceeded(t *testing.T) {
	deadline := time.Now().Add(10 * time.Millisecond)
	fc := NewFlowContext(context.Background(), nil, deadline, RequestOptions{})
	if fc.DeadlineExceeded(deadline.Add(-time.Millisecond)) {
		t.Error("DeadlineExceeded before deadline = true, want false")
	}
	if !fc.DeadlineExceeded(deadline) {
		t.Error("DeadlineExceeded at deadline = false, want true")
	}
	if !fc.DeadlineExceeded(deadline.Add(time.Millisecond)) {
		t.Error("DeadlineExceeded after deadline = false, want true")
	}
}

func TestFlowContextDoneAndErrDelegateToContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := NewFlowContext(ctx, nil, time.Now().Add(time.Minute), RequestOptions{})
	if fc.Err() != nil {
		t.Fatalf("Err() before cancel = %v, want nil", fc.Err())
	}
	cancel()
	select {
	case <-fc.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() never closed after cancel")
	}
	if fc.Err() == nil {
		t.Error("Err() after cancel = nil, want context.Canceled")
	}
}

func TestFlowContextSnapshotOnceFetchesExactlyOnce(t *testing.T) {
	fc := NewFlowContext(context.Background(), nil, time.Now().Add(time.Minute), RequestOptions{})
	calls := 0
	fetch := func() (configsnap.Snapshot, error) {
		calls++
		return configsnap.Snapshot{ConfigVersion: 7}, nil
	}
	for i := 0; i < 3; i++ {
		snap, err := fc.snapshotOnce(fetch)
		if err != nil {
			t.Fatalf("snapshotOnce() error = %v", err)
		}
		if snap.ConfigVersion != 7 {
			t.Errorf("ConfigVersion = %d, want 7", snap.ConfigVersion)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}
