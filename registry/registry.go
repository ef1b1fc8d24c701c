// Package registry tracks the set of actors currently running in a
// process: their generated id, a caller-assigned name, and the server
// Endpoint used to reach them. It is a supplemented feature (spec.md never
// names a directory service, but §3's "many independent implementations" of
// a service are meaningless to operate without one) modeled on the
// teacher's LeaseManager: a mutex-guarded map plus a background reaper, here
// repurposed from lease expiry to dead-actor sweeping.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/rpcharness/harness"
)

// Entry describes one registered actor.
type Entry struct {
	ID        string
	Name      string
	Endpoint  *harness.Endpoint
	Started   time.Time
	LastSweep time.Time
}

// Registry is a concurrency-safe directory of live actors. A zero Registry
// is not usable; construct one with New.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	sweepInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// New constructs an empty Registry. sweepInterval controls how often the
// background reaper checks for actors whose server Endpoint has been closed
// (Endpoint.Closed reports true); 0 disables the reaper.
func New(sweepInterval time.Duration) *Registry {
	return &Registry{
		entries:       make(map[string]*Entry),
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the background reaper goroutine, if a sweep interval was
// configured. Safe to call at most once.
func (r *Registry) Start() {
	if r.sweepInterval <= 0 {
		return
	}
	go r.sweepLoop()
}

// Stop halts the background reaper. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweepDead()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) sweepDead() {
	r.mu.Lock()
	now := time.Now()
	dead := make([]string, 0)
	for id, e := range r.entries {
		if e.Endpoint.Closed() {
			dead = append(dead, id)
		}
		e.LastSweep = now
	}
	for _, id := range dead {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, id := range dead {
		log.Debug().Str("actor_id", id).Msg("[Registry] reaped dead actor")
	}
}

// Register adds a newly spawned actor under a fresh generated id and
// returns it. name is a caller-chosen label for display purposes only and
// need not be unique.
func (r *Registry) Register(name string, endpoint *harness.Endpoint) *Entry {
	e := &Entry{
		ID:       uuid.NewString(),
		Name:     name,
		Endpoint: endpoint,
		Started:  time.Now(),
	}
	r.mu.Lock()
	r.entries[e.ID] = e
	r.mu.Unlock()
	log.Debug().Str("actor_id", e.ID).Str("name", name).Msg("[Registry] registered actor")
	return e
}

// Lookup returns the entry for id, if it is still registered.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Unregister removes id from the directory without touching the actor
// itself. Callers that also want to terminate the actor must call
// harness.Shutdown separately.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// List returns a snapshot of every currently registered entry, in no
// particular order.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Count returns the number of currently registered actors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
