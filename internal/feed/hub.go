package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub owns the authoritative snapshot and fans it out to subscribers.
// Publishes inside the debounce window coalesce: only the latest snapshot
// is delivered, so a burst of normalizer updates never floods a slow
// client. Each subscriber has a buffer of exactly one; a stale undelivered
// snapshot is replaced, never queued behind.
type Hub struct {
	debounce time.Duration

	mu      sync.Mutex
	current *DashboardData
	pending *DashboardData
	timer   *time.Timer
	subs    map[string]*Subscription
	closed  bool
}

// Subscription is one subscriber's view of the hub. Close is idempotent
// and immediately stops further pushes.
type Subscription struct {
	id   string
	hub  *Hub
	ch   chan DashboardData
	once sync.Once
}

func NewHub(debounce time.Duration) *Hub {
	return &Hub{
		debounce: debounce,
		subs:     map[string]*Subscription{},
	}
}

// Subscribe registers a new subscriber. The caller receives snapshots on
// Updates; it does not receive the current snapshot automatically, that
// initial sync is the transport's job via Current.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:  uuid.NewString(),
		hub: h,
		ch:  make(chan DashboardData, 1),
	}
	h.mu.Lock()
	if !h.closed {
		h.subs[sub.id] = sub
	} else {
		close(sub.ch)
	}
	h.mu.Unlock()
	return sub
}

// Updates is the subscriber's snapshot channel. It is closed when the
// subscription or the hub closes.
func (s *Subscription) Updates() <-chan DashboardData { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if _, ok := h.subs[s.id]; ok {
			delete(h.subs, s.id)
			close(s.ch)
		}
		h.mu.Unlock()
	})
}

// Current returns the latest delivered snapshot for initial sync on
// connect. ok is false before the first publish flushes.
func (h *Hub) Current() (DashboardData, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return DashboardData{}, false
	}
	return *h.current, true
}

// Publish hands the hub a new snapshot. The snapshot must not be mutated
// by the caller afterwards; the hub treats it as immutable.
func (h *Hub) Publish(snap DashboardData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.pending = &snap
	if h.timer == nil {
		h.timer = time.AfterFunc(h.debounce, h.flush)
	}
}

// flush delivers the pending snapshot to every subscriber, replacing any
// stale value sitting undelivered in a subscriber's buffer.
func (h *Hub) flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = nil
	if h.pending == nil || h.closed {
		return
	}
	h.current = h.pending
	h.pending = nil
	for _, sub := range h.subs {
		select {
		case sub.ch <- *h.current:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- *h.current
		}
	}
}

// Close tears the hub down: all subscriber channels close and later
// publishes are ignored. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
