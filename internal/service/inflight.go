package service

import "sync"

// InflightGuard tracks applicants whose admission decision is in flight. It is
// purely in-memory and process-scoped: after a restart an applicant may get
// one spurious duplicate attempt, which the duplicate check then catches.
type InflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInflightGuard constructs the guard.
func NewInflightGuard() *InflightGuard {
	return &InflightGuard{active: make(map[string]struct{})}
}

// TryAcquire marks the applicant in flight. Returns false if already marked.
func (g *InflightGuard) TryAcquire(applicantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[applicantID]; busy {
		return false
	}
	g.active[applicantID] = struct{}{}
	return true
}

// Release clears the applicant's in-flight mark. Safe to call when absent.
func (g *InflightGuard) Release(applicantID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, applicantID)
}
