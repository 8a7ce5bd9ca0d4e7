package interview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

// Registry tracks the live orchestrators of this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{sessions: make(map[string]*Orchestrator), logger: logger}
}

func (r *Registry) Add(o *Orchestrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[o.ID()]; exists {
		return ErrSessionExists
	}
	r.sessions[o.ID()] = o
	return nil
}

func (r *Registry) Get(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.sessions[id]
	return o, ok
}

// Remove closes and forgets the orchestrator.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	o, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		o.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepIdle ends and removes sessions without activity for maxIdle. It
// returns the ids that were removed.
func (r *Registry) SweepIdle(ctx context.Context, maxIdle time.Duration, now time.Time) []string {
	r.mu.RLock()
	var stale []*Orchestrator
	for _, o := range r.sessions {
		if now.Sub(o.LastActivity()) >= maxIdle {
			stale = append(stale, o)
		}
	}
	r.mu.RUnlock()

	removed := make([]string, 0, len(stale))
	for _, o := range stale {
		if o.Snapshot().Phase != models.PhaseCompleted {
			if err := o.End(ctx); err != nil {
				r.logger.Warn("failed to end idle session", zap.String("session_id", o.ID()), zap.Error(err))
			}
		}
		r.Remove(o.ID())
		removed = append(removed, o.ID())
	}
	return removed
}

// CloseAll shuts every orchestrator down, used on process exit.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Orchestrator)
	r.mu.Unlock()
	for _, o := range sessions {
		o.Close()
	}
}
