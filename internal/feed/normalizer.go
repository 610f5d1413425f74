package feed

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"hivedash/internal/logging"
)

// RawRecord is one line of the message log as written by the swarm CLI.
// Every field except source and target is optional in practice.
type RawRecord struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	MessageType string `json:"message_type"`
	Message     string `json:"message"`
	Priority    string `json:"priority,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// workerState is the normalizer's private per-worker bookkeeping.
type workerState struct {
	lastActivity time.Time
	lastRaw      string // verbatim timestamp string for the snapshot
	currentTask  string
	emoji        string
	completed    uint
	respTotal    time.Duration
	respCount    uint
	// pending holds assignment times awaiting a task_result, FIFO.
	pending []time.Time
}

// Normalizer turns raw log records into canonical Messages and maintains
// the worker, session, and metrics state they imply. It is not safe for
// concurrent use; the feed loop is its single caller.
type Normalizer struct {
	thresholds StatusThresholds
	messageCap int
	roles      *RoleTable
	log        *logging.Logger

	seen     map[string]struct{}
	recent   []Message
	workers  map[string]*workerState
	order    []string // worker names in first-seen order

	session      Session
	sessionStart time.Time
	sessionCount int

	totalTasks     int
	completedTasks int

	dropped    int
	duplicates int
}

// NewNormalizer builds a normalizer with the given status thresholds,
// recent-message capacity, and role table (nil means built-in roles).
func NewNormalizer(th StatusThresholds, messageCap int, roles *RoleTable, log *logging.Logger) *Normalizer {
	if roles == nil {
		roles = BuiltinRoles()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Normalizer{
		thresholds: th,
		messageCap: messageCap,
		roles:      roles,
		log:        log,
		seen:       map[string]struct{}{},
		workers:    map[string]*workerState{},
	}
}

// Ingest normalizes one raw record. It returns false when the record is
// dropped: malformed source/target, or a duplicate of an already-ingested
// ID (re-reads of the same log segment are expected and harmless).
func (n *Normalizer) Ingest(rec RawRecord, now time.Time) (Message, bool) {
	if rec.Source == "" || rec.Target == "" {
		n.dropped++
		n.log.Warn("dropping malformed record", map[string]any{
			"id": rec.ID, "source": rec.Source, "target": rec.Target,
		})
		return Message{}, false
	}

	id := rec.ID
	if id == "" {
		id = synthesizeID(rec)
	}
	if _, dup := n.seen[id]; dup {
		n.duplicates++
		return Message{}, false
	}
	n.seen[id] = struct{}{}

	at, raw := parseTimestamp(rec.Timestamp, now)
	msg := Message{
		ID:          id,
		Timestamp:   raw,
		Source:      rec.Source,
		Target:      rec.Target,
		MessageType: MessageType(rec.MessageType),
		Message:     rec.Message,
		Priority:    Priority(rec.Priority),
		SessionID:   rec.SessionID,
	}
	if msg.MessageType == "" {
		msg.MessageType = TypeDirect
	}

	n.append(msg)
	src := n.touch(rec.Source, at, raw)
	dst := n.touch(rec.Target, at, raw)
	n.applyTask(msg, src, dst, at)
	n.applySession(msg, at)
	n.sessionCount++
	return msg, true
}

// append pushes onto the bounded recent-messages buffer, evicting the
// oldest by arrival order once the cap is exceeded. Eviction deliberately
// ignores the timestamp field, which may arrive out of order.
func (n *Normalizer) append(msg Message) {
	n.recent = append(n.recent, msg)
	if len(n.recent) > n.messageCap {
		n.recent = n.recent[len(n.recent)-n.messageCap:]
	}
}

// touch upserts a worker and advances its recency. Out-of-order arrival
// never regresses last_activity.
func (n *Normalizer) touch(name string, at time.Time, raw string) *workerState {
	w, ok := n.workers[name]
	if !ok {
		w = &workerState{emoji: n.roles.Emoji(name)}
		n.workers[name] = w
		n.order = append(n.order, name)
	}
	if at.After(w.lastActivity) {
		w.lastActivity = at
		w.lastRaw = raw
	}
	return w
}

func (n *Normalizer) applyTask(msg Message, src, dst *workerState, at time.Time) {
	switch msg.MessageType {
	case TypeTaskAssignment:
		n.totalTasks++
		dst.currentTask = taskTitle(msg.Message)
		dst.pending = append(dst.pending, at)
	case TypeTaskResult:
		n.completedTasks++
		src.completed++
		src.currentTask = ""
		if len(src.pending) > 0 {
			assigned := src.pending[0]
			src.pending = src.pending[1:]
			if d := at.Sub(assigned); d > 0 {
				src.respTotal += d
				src.respCount++
			}
		}
	}
}

// applySession rolls the current session over when a new session_id shows
// up; the previous session is superseded wholesale.
func (n *Normalizer) applySession(msg Message, at time.Time) {
	if msg.SessionID == "" || msg.SessionID == n.session.ID {
		if n.session.ID == "" && n.sessionStart.IsZero() {
			n.sessionStart = at
			n.session.StartTime = msg.Timestamp
			n.session.Status = SessionActive
		}
		return
	}
	n.session = Session{
		ID:        msg.SessionID,
		StartTime: msg.Timestamp,
		Status:    SessionActive,
	}
	n.sessionStart = at
	n.sessionCount = 0
}

// Snapshot composes a complete DashboardData for the given instant.
// Worker statuses are derived here for every known worker, so callers
// driving a periodic tick get idle/inactive transitions without any new
// messages arriving.
func (n *Normalizer) Snapshot(now time.Time) DashboardData {
	workers := make([]Worker, 0, len(n.order))
	active := 0
	for _, name := range n.order {
		w := n.workers[name]
		status := DeriveStatus(w.lastActivity, w.currentTask != "", now, n.thresholds)
		if status == StatusActive || status == StatusWorking {
			active++
		}
		worker := Worker{
			Name:         name,
			Status:       status,
			Emoji:        w.emoji,
			LastActivity: w.lastRaw,
			CurrentTask:  w.currentTask,
		}
		if w.completed > 0 {
			avg := 0.0
			if w.respCount > 0 {
				avg = float64(w.respTotal.Milliseconds()) / float64(w.respCount)
			}
			worker.Performance = &Performance{
				TasksCompleted:  w.completed,
				AvgResponseTime: avg,
				SuccessRate:     1.0,
			}
		}
		workers = append(workers, worker)
	}

	recent := make([]Message, len(n.recent))
	copy(recent, n.recent)

	session := n.session
	session.TotalMessages = n.sessionCount
	session.TotalWorkers = len(n.workers)
	if !n.sessionStart.IsZero() {
		session.Duration = now.Sub(n.sessionStart).Seconds()
	}

	return DashboardData{
		Workers:            workers,
		RecentMessages:     recent,
		PerformanceMetrics: n.metrics(active),
		CurrentSession:     session,
		Timestamp:          now.UTC().Format(time.RFC3339),
	}
}

func (n *Normalizer) metrics(activeWorkers int) PerformanceMetrics {
	m := PerformanceMetrics{
		TotalTasks:     n.totalTasks,
		CompletedTasks: n.completedTasks,
		ActiveWorkers:  activeWorkers,
	}
	if n.totalTasks > 0 {
		m.SuccessRate = float64(n.completedTasks) / float64(n.totalTasks)
		if m.SuccessRate > 1 {
			m.SuccessRate = 1
		}
	}
	var total time.Duration
	var count uint
	for _, w := range n.workers {
		total += w.respTotal
		count += w.respCount
	}
	if count > 0 {
		m.AvgResponseTime = float64(total.Milliseconds()) / float64(count)
	}
	return m
}

// Dropped reports how many malformed records were discarded.
func (n *Normalizer) Dropped() int { return n.dropped }

// Duplicates reports how many already-seen IDs were skipped.
func (n *Normalizer) Duplicates() int { return n.duplicates }

// synthesizeID derives a stable ID from the record's content so re-reads
// of the same log segment never duplicate a message.
func synthesizeID(rec RawRecord) string {
	sum := sha1.Sum(fmt.Appendf(nil, "%s|%s|%s|%s", rec.Timestamp, rec.Source, rec.Target, rec.Message))
	return "msg-" + hex.EncodeToString(sum[:8])
}

// parseTimestamp returns both the parsed instant and the string to carry
// on the wire. Unparsable timestamps fall back to the ingest time.
func parseTimestamp(raw string, now time.Time) (time.Time, string) {
	if raw == "" {
		return now, now.UTC().Format(time.RFC3339)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at, raw
		}
	}
	return now, raw
}

// taskTitle trims an assignment body down to something that fits the
// current_task field.
func taskTitle(body string) string {
	const max = 80
	for i, r := range body {
		if r == '\n' {
			body = body[:i]
			break
		}
	}
	if r := []rune(body); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	if body == "" {
		return "task"
	}
	return body
}
