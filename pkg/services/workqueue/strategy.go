package workqueue

import "sync"

// ConcurrencyStrategy controls how many tasks are allowed to run at once.
// The strategy tracks running tasks and decides whether a pending task may
// start given the current state.
type ConcurrencyStrategy interface {
	// CanStart returns true if another task may start now.
	CanStart() bool
	// OnStart is called when a task starts.
	OnStart()
	// OnComplete is called when a task reaches a terminal state.
	OnComplete()
}

// BoundedStrategy allows up to maxConcurrent tasks to run in parallel.
// Queued tasks start in submission order as slots free.
type BoundedStrategy struct {
	mu            sync.Mutex
	maxConcurrent int
	running       int
}

// NewBoundedStrategy creates a strategy capped at maxConcurrent tasks.
// Values below 1 are clamped to 1.
func NewBoundedStrategy(maxConcurrent int) *BoundedStrategy {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &BoundedStrategy{maxConcurrent: maxConcurrent}
}

func (s *BoundedStrategy) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running < s.maxConcurrent
}

func (s *BoundedStrategy) OnStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running++
}

func (s *BoundedStrategy) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running > 0 {
		s.running--
	}
}

// NewSerialStrategy creates a strategy that runs one task at a time.
func NewSerialStrategy() *BoundedStrategy {
	return NewBoundedStrategy(1)
}
