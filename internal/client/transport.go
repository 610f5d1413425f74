package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hivedash/internal/feed"
)

// ErrReconnectExhausted is surfaced once the reconnect attempt cap is
// reached. The transport then sits idle until Reconnect or Close; it never
// retries silently forever.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// State of the transport connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// EventKind discriminates transport events.
type EventKind int

const (
	// KindState reports a connection state change.
	KindState EventKind = iota
	// KindSnapshot carries a dashboard snapshot.
	KindSnapshot
	// KindError carries a recoverable error; the connection survives
	// unless Terminal is set.
	KindError
)

// Event is what the transport emits to its single consumer.
type Event struct {
	Kind     EventKind
	State    State
	Snapshot *feed.DashboardData
	Err      error
	Terminal bool
}

// Options configures the transport. All durations and counts come from
// configuration; nothing here is hardwired.
type Options struct {
	URL                  string
	HeartbeatTimeout     time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	Dialer               *websocket.Dialer
}

// Transport maintains one persistent feed connection with linear-backoff
// reconnection. One goroutine owns the dial loop, the heartbeat watchdog,
// and the backoff timer, so Close provably cancels everything; there are
// no scattered timer callbacks to leak.
type Transport struct {
	opts Options

	events     chan Event
	reconnectc chan struct{}
	closec     chan struct{}
	closeOnce  sync.Once
	done       chan struct{}
}

func New(opts Options) *Transport {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Transport{
		opts:       opts,
		events:     make(chan Event, 16),
		reconnectc: make(chan struct{}, 1),
		closec:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Events is the transport's output. Exactly one consumer should read it.
func (t *Transport) Events() <-chan Event { return t.events }

// Start launches the connection loop.
func (t *Transport) Start() {
	go t.run()
}

// Reconnect requests an immediate reconnect, resetting the attempt
// counter and bypassing any backoff in progress. Safe from any goroutine.
func (t *Transport) Reconnect() {
	select {
	case t.reconnectc <- struct{}{}:
	default:
	}
}

// Close tears the transport down: the active connection closes and every
// pending timer dies with the run loop. Idempotent; call only after
// Start, since it waits for the run loop to exit.
func (t *Transport) Close() {
	t.closeOnce.Do(func() { close(t.closec) })
	<-t.done
}

func (t *Transport) run() {
	defer close(t.done)
	attempt := 0
	for {
		t.emit(Event{Kind: KindState, State: StateConnecting})
		conn, resp, err := t.opts.Dialer.Dial(t.opts.URL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			attempt = 0
			t.emit(Event{Kind: KindState, State: StateConnected})
			reason := t.serve(conn)
			if reason == leaveClose {
				return
			}
			if reason == leaveManual {
				continue
			}
			// Fall through to backoff below on transport failure.
		}
		attempt++
		t.emit(Event{Kind: KindState, State: StateDisconnected})
		if attempt > t.opts.MaxReconnectAttempts {
			t.emit(Event{Kind: KindError, Err: ErrReconnectExhausted, Terminal: true})
			// Terminal: wait for a manual reconnect or teardown.
			select {
			case <-t.reconnectc:
				attempt = 0
				continue
			case <-t.closec:
				return
			}
		}
		if err != nil {
			t.emit(Event{Kind: KindError, Err: fmt.Errorf("connect %s: %w", t.opts.URL, err)})
		}
		// Linear backoff: the Nth consecutive failure waits base×N.
		delay := time.Duration(attempt) * t.opts.ReconnectBaseDelay
		backoff := time.NewTimer(delay)
		select {
		case <-backoff.C:
		case <-t.reconnectc:
			backoff.Stop()
			attempt = 0
		case <-t.closec:
			backoff.Stop()
			return
		}
	}
}

// leaveReason says why serve returned.
type leaveReason int

const (
	leaveFailure leaveReason = iota // transport error or heartbeat timeout
	leaveManual                     // explicit Reconnect while connected
	leaveClose                      // transport torn down
)

// serve runs one established connection. Inbound frames are read on a
// helper goroutine; everything stateful, including the pong replies and
// the heartbeat watchdog, stays on the run goroutine.
func (t *Transport) serve(conn *websocket.Conn) leaveReason {
	defer conn.Close()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	readerStop := make(chan struct{})
	defer close(readerStop)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-readerStop:
				return
			}
		}
	}()

	watchdog := time.NewTimer(t.opts.HeartbeatTimeout)
	defer watchdog.Stop()

	for {
		select {
		case <-t.closec:
			return leaveClose
		case <-t.reconnectc:
			return leaveManual
		case err := <-readErr:
			t.emit(Event{Kind: KindError, Err: fmt.Errorf("connection lost: %w", err)})
			return leaveFailure
		case <-watchdog.C:
			t.emit(Event{Kind: KindError, Err: errors.New("heartbeat timeout")})
			return leaveFailure
		case data := <-frames:
			// Any inbound traffic proves the connection is alive.
			if !watchdog.Stop() {
				<-watchdog.C
			}
			watchdog.Reset(t.opts.HeartbeatTimeout)

			var f feed.Frame
			if err := json.Unmarshal(data, &f); err != nil {
				// Payload damage is recoverable; only transport-level
				// closure triggers the reconnect path.
				t.emit(Event{Kind: KindError, Err: fmt.Errorf("bad frame: %w", err)})
				continue
			}
			switch f.Type {
			case feed.FramePing:
				if err := conn.WriteJSON(feed.Frame{Type: feed.FramePong}); err != nil {
					t.emit(Event{Kind: KindError, Err: fmt.Errorf("connection lost: %w", err)})
					return leaveFailure
				}
			case feed.FrameSnapshot:
				if f.Payload != nil {
					t.emit(Event{Kind: KindSnapshot, Snapshot: f.Payload})
				}
			}
		}
	}
}

// emit delivers an event unless the transport is closing. The events
// channel is buffered; if the consumer has stopped draining it we drop
// rather than wedge the run loop.
func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.closec:
	default:
	}
}
