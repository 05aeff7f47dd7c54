package engine

import (
	"sync"

	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

// memoEntry is a single-flight cell: the first caller for a key runs the
// work and closes done with the result; concurrent callers for the same key
// block on done and reuse that result instead of running the work again.
type memoEntry struct {
	done chan struct{}
	out  outcome.Outcome[any]
}

// requestMemo is FlowContext's per-request memoization table. It lives
// exactly as long as its FlowContext, so entries are never shared across
// requests; memo keys are only unique within one request.
type requestMemo struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
}

func newRequestMemo() *requestMemo {
	return &requestMemo{entries: make(map[string]*memoEntry)}
}

// getOrRun returns (outcome, hit=true) if key was already memoized by a
// concurrent or prior caller in this request, otherwise it runs fn, stores
// the result under key, and returns (outcome, hit=false).
func (m *requestMemo) getOrRun(key string, fn func() outcome.Outcome[any]) (outcome.Outcome[any], bool) {
	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		m.mu.Unlock()
		<-e.done
		return e.out, true
	}
	e := &memoEntry{done: make(chan struct{})}
	m.entries[key] = e
	m.mu.Unlock()

	e.out = fn()
	close(e.done)
	return e.out, false
}
