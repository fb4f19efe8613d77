// Package session keeps one submission dispatcher per open contact form and
// guards each form against overlapping submissions.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"contactrelay/internal/contact"
)

const defaultIdleTimeout = 30 * time.Minute

// Factory builds the dispatcher of a newly seen form.
type Factory func(formID string) *contact.Dispatcher

// Locker marks a form as busy across service replicas. Acquire returns a
// token naming this hold; Release only drops the mark while it still carries
// that token.
type Locker interface {
	Acquire(ctx context.Context, formID string) (string, bool)
	Release(ctx context.Context, formID, token string)
}

// LocalLocker is used when no shared store is configured; the dispatcher's
// own state is then the only guard.
type LocalLocker struct{}

func (LocalLocker) Acquire(context.Context, string) (string, bool) { return "", true }
func (LocalLocker) Release(context.Context, string, string)        {}

type entry struct {
	d        *contact.Dispatcher
	lastSeen time.Time
}

type Registry struct {
	factory Factory
	idle    time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	forms map[string]*entry
}

func NewRegistry(factory Factory, idle time.Duration, logger *zap.Logger) *Registry {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Registry{
		factory: factory,
		idle:    idle,
		logger:  logger,
		now:     time.Now,
		forms:   make(map[string]*entry),
	}
}

// Get returns the dispatcher of formID, creating it on first use.
func (r *Registry) Get(formID string) *contact.Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.forms[formID]
	if !ok {
		e = &entry{d: r.factory(formID)}
		r.forms[formID] = e
	}
	e.lastSeen = r.now()
	return e.d
}

// Len is the number of live forms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Sweep closes and drops forms idle for longer than the idle timeout. Busy
// forms are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, e := range r.forms {
		if e.lastSeen.After(cutoff) || e.d.Busy() {
			continue
		}
		e.d.Close()
		delete(r.forms, id)
		evicted++
	}
	return evicted
}

// Run sweeps periodically until ctx is done, then closes every form.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("Evicted idle forms", zap.Int("count", n))
			}
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.forms {
		e.d.Close()
		delete(r.forms, id)
	}
}
