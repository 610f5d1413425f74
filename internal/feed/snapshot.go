package feed

// PerformanceMetrics are swarm-wide counters, recomputed wholesale on
// every normalization pass rather than patched incrementally, so they can
// never drift from the messages they summarize.
type PerformanceMetrics struct {
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ActiveWorkers   int     `json:"active_workers"`
}

// SessionStatus describes the lifecycle of a swarm session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// Session is the one current swarm session. A new session_id in the log
// supersedes it wholesale; there are no merge semantics.
type Session struct {
	ID            string        `json:"id"`
	StartTime     string        `json:"start_time"`
	Duration      float64       `json:"duration"`
	Status        SessionStatus `json:"status"`
	TotalMessages int           `json:"total_messages"`
	TotalWorkers  int           `json:"total_workers"`
}

// DashboardData is one complete, internally consistent copy of all
// dashboard state at an instant. The feed server replaces it wholesale;
// everything downstream holds read-only copies.
type DashboardData struct {
	Workers            []Worker           `json:"workers"`
	RecentMessages     []Message          `json:"recent_messages"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	CurrentSession     Session            `json:"current_session"`
	Timestamp          string             `json:"timestamp"`
}
