package client

import (
	"sync"
	"time"

	"hivedash/internal/feed"
)

// FlowStatus is the animation state of a message flow edge.
type FlowStatus string

const (
	FlowSending   FlowStatus = "sending"
	FlowDelivered FlowStatus = "delivered"
	FlowFailed    FlowStatus = "failed"
)

// Flow is an ephemeral overlay created per newly observed message for the
// topology animation. Flows are never part of the durable model; they
// expire after a fixed display duration and are capped in count.
type Flow struct {
	ID          string
	Source      string
	Target      string
	MessageType feed.MessageType
	At          time.Time
	Status      FlowStatus
}

// Store holds the latest snapshot plus transport status for the
// visualization layer. It is explicitly constructed and passed by
// reference; there is no ambient process-wide instance. All derived views
// are pure functions over the snapshot it returns, so two reads in the
// same render tick can never disagree.
type Store struct {
	flowTTL time.Duration
	flowCap int

	mu       sync.Mutex
	data     *feed.DashboardData
	dataAt   time.Time
	state    State
	err      error
	terminal bool
	seen     map[string]struct{}
	flows    []Flow
}

func NewStore(flowTTL time.Duration, flowCap int) *Store {
	return &Store{
		flowTTL: flowTTL,
		flowCap: flowCap,
		state:   StateDisconnected,
		seen:    map[string]struct{}{},
	}
}

// Apply feeds one transport event into the store.
func (s *Store) Apply(ev Event, now time.Time) {
	switch ev.Kind {
	case KindState:
		s.setState(ev.State)
	case KindSnapshot:
		if ev.Snapshot != nil {
			s.ApplySnapshot(*ev.Snapshot, now)
		}
	case KindError:
		s.SetError(ev.Err, ev.Terminal)
	}
}

// ApplySnapshot replaces the snapshot wholesale. A snapshot older than
// the one already held is discarded, which keeps the view monotonic even
// across reconnect replay. Returns whether the snapshot was accepted.
func (s *Store) ApplySnapshot(snap feed.DashboardData, now time.Time) bool {
	at, err := time.Parse(time.RFC3339, snap.Timestamp)
	if err != nil {
		at = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil && at.Before(s.dataAt) {
		return false
	}
	s.spawnFlows(snap, now)
	s.data = &snap
	s.dataAt = at
	return true
}

// spawnFlows creates animation flows for messages not seen in any prior
// snapshot. Caller holds the lock.
func (s *Store) spawnFlows(snap feed.DashboardData, now time.Time) {
	current := make(map[string]struct{}, len(snap.RecentMessages))
	for _, m := range snap.RecentMessages {
		current[m.ID] = struct{}{}
		if _, ok := s.seen[m.ID]; ok {
			continue
		}
		s.seen[m.ID] = struct{}{}
		status := FlowDelivered
		if m.MessageType == feed.TypeError {
			status = FlowFailed
		}
		s.flows = append(s.flows, Flow{
			ID:          "flow-" + m.ID,
			Source:      m.Source,
			Target:      m.Target,
			MessageType: m.MessageType,
			At:          now,
			Status:      status,
		})
	}
	// An evicted ID never reenters the ring, so anything absent from this
	// snapshot can be forgotten; seen stays bounded by the ring size.
	for id := range s.seen {
		if _, ok := current[id]; !ok {
			delete(s.seen, id)
		}
	}
	if len(s.flows) > s.flowCap {
		s.flows = s.flows[len(s.flows)-s.flowCap:]
	}
}

func (s *Store) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	if st == StateConnected {
		s.err = nil
		s.terminal = false
	}
}

// SetError flags a transport error without discarding the last-known-good
// snapshot; stale-but-available beats blank-on-error.
func (s *Store) SetError(err error, terminal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	if terminal {
		s.terminal = true
	}
}

// ClearError drops the error flag, e.g. on a manual reconnect.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	s.terminal = false
}

// Snapshot returns the latest snapshot. ok is false before the first one
// arrives.
func (s *Store) Snapshot() (feed.DashboardData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return feed.DashboardData{}, false
	}
	return *s.data, true
}

// State reports the transport connection state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports the current error flag and whether it is terminal
// (reconnection exhausted).
func (s *Store) Err() (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err, s.terminal
}

// Flows returns the flows still inside their display TTL, pruning the
// expired ones as a side effect.
func (s *Store) Flows(now time.Time) []Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.flows[:0]
	for _, f := range s.flows {
		if now.Sub(f.At) < s.flowTTL {
			live = append(live, f)
		}
	}
	s.flows = live
	out := make([]Flow, len(live))
	copy(out, live)
	return out
}
