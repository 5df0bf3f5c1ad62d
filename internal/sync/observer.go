package sync

import "sync"

// Observer is invoked after any state-changing pass so consumers can re-read
// engine state. Callbacks carry no arguments and run synchronously on the
// notifying goroutine; no event bus is involved.
type Observer func()

type observerSet struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Observer
}

func newObserverSet() *observerSet {
	return &observerSet{subs: make(map[int]Observer)}
}

// subscribe registers fn and returns its unsubscribe hook.
func (s *observerSet) subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// notify invokes every registered observer. The subscriber list is copied
// first so callbacks may unsubscribe themselves.
func (s *observerSet) notify() {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}
