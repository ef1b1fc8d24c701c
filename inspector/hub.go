// Package inspector exposes a live view of a running harness process: the
// actors currently registered (via registry.Registry) and a rolling feed of
// recently completed calls, pushed to any connected browser over a
// websocket. It is a supplemented feature grounded on the teacher's
// cmd/example_chat hub (a mutex-guarded set of connections plus a broadcast
// method) generalized from chat messages to call-completion events, with
// the in-memory message backlog replaced by a bounded
// hashicorp/golang-lru/v2 cache so a long-running process does not grow its
// history without limit.
package inspector

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/rpcharness/harness"
	"github.com/gosuda/rpcharness/registry"
)

// Completion records the outcome of one dispatched call, for display in the
// inspector feed.
type Completion struct {
	ActorID  string        `json:"actor_id"`
	Method   string        `json:"method"`
	Status   string        `json:"status"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	At       time.Time     `json:"at"`
	Sequence uint64        `json:"sequence"`
}

// Hub tracks recent completions and fans them out to connected live
// subscribers. The zero Hub is not usable; construct one with NewHub.
type Hub struct {
	registry *registry.Registry

	mu       sync.RWMutex
	ring     *lru.Cache[uint64, Completion]
	sequence uint64

	subMu sync.Mutex
	subs  map[chan Completion]struct{}
}

// NewHub constructs a Hub backed by reg, retaining at most ringSize recent
// completions for Recent.
func NewHub(reg *registry.Registry, ringSize int) *Hub {
	cache, err := lru.New[uint64, Completion](ringSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// programmer error in the caller's constant, not a runtime
		// condition.
		panic(err)
	}
	return &Hub{
		registry: reg,
		ring:     cache,
		subs:     make(map[chan Completion]struct{}),
	}
}

// Registry returns the actor directory this Hub was constructed with.
func (h *Hub) Registry() *registry.Registry {
	return h.registry
}

// Record adds a completion to the ring and broadcasts it to every live
// subscriber. Non-blocking: a subscriber too slow to keep up simply misses
// events rather than stalling the caller.
func (h *Hub) Record(c Completion) {
	h.mu.Lock()
	h.sequence++
	c.Sequence = h.sequence
	h.ring.Add(c.Sequence, c)
	h.mu.Unlock()

	h.subMu.Lock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
			log.Debug().Str("actor_id", c.ActorID).Msg("[inspector] subscriber channel full, dropping event")
		}
	}
	h.subMu.Unlock()
}

// Recent returns up to limit of the most recently recorded completions,
// newest first.
func (h *Hub) Recent(limit int) []Completion {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := h.ring.Keys()
	out := make([]Completion, 0, limit)
	for i := len(keys) - 1; i >= 0 && len(out) < limit; i-- {
		if v, ok := h.ring.Peek(keys[i]); ok {
			out = append(out, v)
		}
	}
	return out
}

// subscribe registers a buffered channel for live completion events and
// returns an unsubscribe function.
func (h *Hub) subscribe(buffer int) (<-chan Completion, func()) {
	ch := make(chan Completion, buffer)
	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	h.subMu.Unlock()
	return ch, func() {
		h.subMu.Lock()
		delete(h.subs, ch)
		h.subMu.Unlock()
		close(ch)
	}
}

// InstrumentedDispatcher decorates a harness.Dispatcher so that every
// Dispatch call is timed and recorded in the Hub before its result is
// returned to the ServerLoop. actorID labels the completions this
// dispatcher produces (typically the registry.Entry.ID for the actor it
// backs).
type InstrumentedDispatcher struct {
	harness.Dispatcher
	hub     *Hub
	actorID string
}

// Instrument wraps next so every dispatched request is recorded against hub
// under actorID.
func Instrument(next harness.Dispatcher, hub *Hub, actorID string) *InstrumentedDispatcher {
	return &InstrumentedDispatcher{Dispatcher: next, hub: hub, actorID: actorID}
}

func (d *InstrumentedDispatcher) Dispatch(ctx context.Context, impl any, tag harness.MethodTag, args []byte) ([]byte, error) {
	start := time.Now()
	data, err := d.Dispatcher.Dispatch(ctx, impl, tag, args)
	status := "Success"
	if err != nil {
		status = "Failed"
	}
	d.hub.Record(Completion{
		ActorID: d.actorID,
		Method:  d.Dispatcher.Pretty(tag),
		Status:  status,
		Elapsed: time.Since(start),
		At:      start,
	})
	return data, err
}
