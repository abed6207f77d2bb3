package renderer

import "sync"

// NameLocks guards output names against concurrent renders. Two jobs with
// the same output_name would race on the same temp script and final
// artifact path, so the second one is rejected instead of queued.
type NameLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewNameLocks() *NameLocks {
	return &NameLocks{held: make(map[string]struct{})}
}

// Acquire claims a name. Returns false when another render already holds it.
func (l *NameLocks) Acquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[name]; busy {
		return false
	}
	l.held[name] = struct{}{}
	return true
}

func (l *NameLocks) Release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
}
