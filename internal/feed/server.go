package feed

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hivedash/internal/logging"
)

// writeWait bounds how long a single frame write may block on a slow
// client before the connection is considered dead.
const writeWait = 10 * time.Second

// Server exposes the hub over a WebSocket endpoint. Each connection gets
// the current snapshot on connect, then coalesced updates, interleaved
// with ping frames so the client can detect silent connection death. A
// client that stops answering pings is torn down quietly; that is normal
// churn, not an error worth escalating.
type Server struct {
	hub        *Hub
	log        *logging.Logger
	hbInterval time.Duration
	hbTimeout  time.Duration
	upgrader   websocket.Upgrader
}

func NewServer(hub *Hub, log *logging.Logger, hbInterval, hbTimeout time.Duration) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		hub:        hub,
		log:        log,
		hbInterval: hbInterval,
		hbTimeout:  hbTimeout,
		upgrader: websocket.Upgrader{
			// The dashboard is a local operator tool; origin checks add
			// nothing here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler routes the feed endpoint plus a liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer sub.Close()

	s.log.Info("feed client connected", map[string]any{"remote": conn.RemoteAddr().String()})
	defer s.log.Info("feed client disconnected", map[string]any{"remote": conn.RemoteAddr().String()})

	// Initial sync: the connecting client starts from the current
	// snapshot rather than waiting for the next publish.
	if snap, ok := s.hub.Current(); ok {
		if err := s.write(conn, Frame{Type: FrameSnapshot, Payload: &snap}); err != nil {
			return
		}
	}

	// Reader: consumes pong frames. Every received frame extends the
	// read deadline, so a client that goes silent past the heartbeat
	// timeout surfaces as a read error.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.hbTimeout))
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.hbInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := s.write(conn, Frame{Type: FrameSnapshot, Payload: &snap}); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.write(conn, Frame{Type: FramePing}); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
