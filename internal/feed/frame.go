package feed

// Frame is the JSON message exchanged on the feed connection. The server
// pushes snapshot and ping frames; the only client-to-server frame is the
// pong acknowledging a ping. This is a push-only feed, not an RPC surface.
type Frame struct {
	Type    string         `json:"type"`
	Payload *DashboardData `json:"payload,omitempty"`
}

const (
	FrameSnapshot = "snapshot"
	FramePing     = "ping"
	FramePong     = "pong"
)
