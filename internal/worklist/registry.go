package worklist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry keeps one View per session and drops views idle for longer than
// the configured timeout.
type Registry struct {
	mu      sync.Mutex
	views   map[string]*View
	newView func() *View
	idle    time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewRegistry(newView func() *View, idle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		views:   make(map[string]*View),
		newView: newView,
		idle:    idle,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the session's view, creating it on first use.
func (r *Registry) Get(sessionID string) *View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[sessionID]
	if !ok {
		v = r.newView()
		r.views[sessionID] = v
	}
	return v
}

// Drop discards a session's view, e.g. on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	v, ok := r.views[sessionID]
	delete(r.views, sessionID)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep evicts idle views and returns how many were removed.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	var evicted []*View

	r.mu.Lock()
	for id, v := range r.views {
		if v.LastUsed().Before(cutoff) {
			evicted = append(evicted, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range evicted {
		v.Close()
	}
	if len(evicted) > 0 {
		r.logger.Debug("evicted idle worklist views", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
