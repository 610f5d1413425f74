package feed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_LogToSnapshotEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	appendFile(t, path,
		`{"id":"m1","timestamp":"2026-08-30T10:00:00Z","source":"queen","target":"developer","message_type":"task_assignment","message":"implement feature X"}`+"\n"+
			`{"id":"m2","timestamp":"2026-08-30T10:00:05Z","source":"developer","target":"queen","message_type":"task_result","message":"done"}`+"\n")

	norm := newTestNormalizer(100)
	hub := NewHub(time.Millisecond)
	defer hub.Close()
	tailer := NewTailer(path, 20*time.Millisecond, nil)
	runner := NewRunner(tailer, norm, hub, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()

	sub := hub.Subscribe()
	defer sub.Close()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-sub.Updates():
			if len(snap.Workers) < 2 {
				continue
			}
			assert.Len(t, snap.RecentMessages, 2)
			assert.Equal(t, 1, snap.PerformanceMetrics.TotalTasks)
			assert.Equal(t, 1, snap.PerformanceMetrics.CompletedTasks)

			// Late append flows through as well.
			appendFile(t, path, `{"id":"m3","timestamp":"2026-08-30T10:00:08Z","source":"queen","target":"tester","message_type":"direct","message":"verify"}`+"\n")
			for {
				select {
				case snap := <-sub.Updates():
					if len(snap.Workers) == 3 {
						cancel()
						<-done
						return
					}
				case <-deadline:
					t.Fatal("appended record never reached the snapshot")
				}
			}
		case <-deadline:
			t.Fatal("initial records never reached the snapshot")
		}
	}
}

func TestRunner_TickPublishesWithoutNewMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	norm := newTestNormalizer(100)
	hub := NewHub(time.Millisecond)
	defer hub.Close()
	runner := NewRunner(NewTailer(path, time.Hour, nil), norm, hub, 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runner.Run(ctx) }()

	sub := hub.Subscribe()
	defer sub.Close()

	// An empty log still produces periodic snapshots; that tick is what
	// decays workers to idle when traffic stops.
	select {
	case snap := <-sub.Updates():
		require.NotEmpty(t, snap.Timestamp)
		assert.Empty(t, snap.Workers)
	case <-time.After(2 * time.Second):
		t.Fatal("tick never published a snapshot")
	}
}
