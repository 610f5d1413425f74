package feed

import "time"

// WorkerStatus is derived from message activity recency, never written
// directly by anything outside the normalizer.
type WorkerStatus string

const (
	StatusActive   WorkerStatus = "active"
	StatusWorking  WorkerStatus = "working"
	StatusIdle     WorkerStatus = "idle"
	StatusInactive WorkerStatus = "inactive"
)

// Performance aggregates a worker's task history.
type Performance struct {
	TasksCompleted  uint    `json:"tasks_completed"`
	AvgResponseTime float64 `json:"avg_response_time"`
	SuccessRate     float64 `json:"success_rate"`
}

// Worker is one named participant in the swarm. Workers are created on
// first observed message and never destroyed; a silent worker decays to
// inactive but stays in the snapshot for display continuity.
type Worker struct {
	Name         string       `json:"name"`
	Status       WorkerStatus `json:"status"`
	Emoji        string       `json:"emoji"`
	LastActivity string       `json:"last_activity"`
	CurrentTask  string       `json:"current_task,omitempty"`
	Performance  *Performance `json:"performance,omitempty"`
}

// StatusThresholds are the recency windows that drive status derivation.
type StatusThresholds struct {
	ActiveWithin   time.Duration
	InactiveBeyond time.Duration
}

// DeriveStatus is a pure function of the worker's last activity, whether
// it has a task in flight, and the current time. Callers recompute it for
// every known worker on each pass so idle/inactive transitions fire even
// when no new messages arrive.
func DeriveStatus(lastActivity time.Time, hasTask bool, now time.Time, th StatusThresholds) WorkerStatus {
	age := now.Sub(lastActivity)
	switch {
	case age <= th.ActiveWithin && hasTask:
		return StatusWorking
	case age <= th.ActiveWithin:
		return StatusActive
	case age <= th.InactiveBeyond:
		return StatusIdle
	default:
		return StatusInactive
	}
}
