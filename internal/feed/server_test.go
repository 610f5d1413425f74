package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestServer_InitialSyncThenUpdates(t *testing.T) {
	hub := NewHub(time.Millisecond)
	defer hub.Close()
	srv := NewServer(hub, nil, time.Minute, 2*time.Minute)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	hub.Publish(snapAt("2026-08-30T10:00:00Z"))
	require.Eventually(t, func() bool { _, ok := hub.Current(); return ok }, time.Second, time.Millisecond)

	conn := dialFeed(t, ts)

	// Connect-time sync: the current snapshot arrives without waiting
	// for the next publish.
	f := readFrame(t, conn, time.Second)
	require.Equal(t, FrameSnapshot, f.Type)
	require.NotNil(t, f.Payload)
	assert.Equal(t, "2026-08-30T10:00:00Z", f.Payload.Timestamp)

	hub.Publish(snapAt("2026-08-30T10:00:05Z"))
	f = readFrame(t, conn, time.Second)
	require.Equal(t, FrameSnapshot, f.Type)
	assert.Equal(t, "2026-08-30T10:00:05Z", f.Payload.Timestamp)
}

func TestServer_SendsPingsIndependentOfData(t *testing.T) {
	hub := NewHub(time.Millisecond)
	defer hub.Close()
	srv := NewServer(hub, nil, 30*time.Millisecond, time.Minute)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialFeed(t, ts)

	f := readFrame(t, conn, time.Second)
	assert.Equal(t, FramePing, f.Type)
	require.NoError(t, conn.WriteJSON(Frame{Type: FramePong}))

	f = readFrame(t, conn, time.Second)
	assert.Equal(t, FramePing, f.Type)
}

func TestServer_SilentClientTornDownOthersKeepFlowing(t *testing.T) {
	hub := NewHub(time.Millisecond)
	defer hub.Close()
	// Tight heartbeat so the silent client dies quickly.
	srv := NewServer(hub, nil, 20*time.Millisecond, 60*time.Millisecond)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	silent := dialFeed(t, ts)
	healthy := dialFeed(t, ts)

	// Healthy client answers pings in the background.
	stop := make(chan struct{})
	defer close(stop)
	snapshots := make(chan string, 32)
	go func() {
		for {
			var f Frame
			if err := healthy.ReadJSON(&f); err != nil {
				return
			}
			switch f.Type {
			case FramePing:
				_ = healthy.WriteJSON(Frame{Type: FramePong})
			case FrameSnapshot:
				select {
				case snapshots <- f.Payload.Timestamp:
				case <-stop:
					return
				}
			}
		}
	}()

	// Give the silent client time to exceed the heartbeat timeout.
	time.Sleep(150 * time.Millisecond)

	hub.Publish(snapAt("2026-08-30T10:00:09Z"))
	select {
	case got := <-snapshots:
		assert.Equal(t, "2026-08-30T10:00:09Z", got)
	case <-time.After(time.Second):
		t.Fatal("healthy client stopped receiving after peer churn")
	}

	// The silent connection should be closed by now.
	_ = silent.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	for {
		if _, _, err := silent.ReadMessage(); err != nil {
			return
		}
	}
}
