package feed

// MessageType classifies the purpose of a communication record. The
// taxonomy is open-ended: anything the log contains is carried verbatim,
// and consumers fall back to a default rendering for values they don't
// recognize.
type MessageType string

const (
	TypeTaskAssignment MessageType = "task_assignment"
	TypeDirect         MessageType = "direct"
	TypeResponse       MessageType = "response"
	TypeTaskResult     MessageType = "task_result"
	TypeCoordination   MessageType = "coordination"
	TypeStatusUpdate   MessageType = "status_update"
	TypeError          MessageType = "error"
)

// Known reports whether t is one of the well-known types, letting switch
// statements over known values stay exhaustive while unknown values pass
// through untouched.
func (t MessageType) Known() bool {
	switch t {
	case TypeTaskAssignment, TypeDirect, TypeResponse, TypeTaskResult,
		TypeCoordination, TypeStatusUpdate, TypeError:
		return true
	}
	return false
}

// Priority of a message. Optional; absent means unspecified.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Message is the canonical normalized record. Field names are part of the
// wire contract; a dashboard rewritten against the same server must decode
// these exact keys.
type Message struct {
	ID          string      `json:"id"`
	Timestamp   string      `json:"timestamp"`
	Source      string      `json:"source"`
	Target      string      `json:"target"`
	MessageType MessageType `json:"message_type"`
	Message     string      `json:"message"`
	Priority    Priority    `json:"priority,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
}
