package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

func TestRequestMemoRunsOnceForConcurrentCallers(t *testing.T) {
	m := newRequestMemo()
	var runs int32
	var wg sync.WaitGroup
	hits := make([]bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			o, hit := m.getOrRun("k", func() outcome.Outcome[any] {
				atomic.AddInt32(&runs, 1)
				time.Sleep(10 * time.Millisecond)
				return outcome.NewOk[any]("done")
			})
			hits[idx] = hit
			if o.Kind() != outcome.Ok || o.Value() != "done" {
				t.Errorf("caller %d got %v, want Ok(done)", idx, o)
			}
		}(i)
	}
	wg.Wait()

	if runs != 1 {
		t.Errorf("work ran %d times, want 1", runs)
	}
	firstRunner := 0
	for _, hit := range hits {
		if !hit {
			firstRunner++
		}
	}
	if firstRunner != 1 {
		t.Errorf("%d callers saw hit=false, want exactly 1", firstRunner)
	}
}

func TestRequestMemoDistinctKeysRunIndependently(t *testing.T) {
	m := newRequestMemo()
	var runs int32
	run := func() outcome.Outcome[any] {
		atomic.AddInt32(&runs, 1)
		return outcome.NewOk[any](1)
	}
	m.getOrRun("a", run)
	m.getOrRun("b", run)
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}
