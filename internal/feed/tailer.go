package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"hivedash/internal/logging"
)

// Tailer follows an append-only JSONL message log. It resumes from its
// byte offset on every poll, holds incomplete trailing lines until the
// writer finishes them, and starts over when the file is truncated or
// rotated. fsnotify wakes it up on writes; a poll-interval ticker covers
// filesystems where watch events are unreliable.
type Tailer struct {
	path     string
	interval time.Duration
	log      *logging.Logger

	offset  int64
	partial []byte
}

func NewTailer(path string, interval time.Duration, log *logging.Logger) *Tailer {
	if log == nil {
		log = logging.Nop()
	}
	return &Tailer{path: path, interval: interval, log: log}
}

// Run polls until ctx is cancelled, calling emit for every complete
// record discovered. emit runs on the tailer's goroutine. When fsnotify
// is unavailable the tailer keeps going on the ticker alone.
func (t *Tailer) Run(ctx context.Context, emit func(RawRecord)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Warn("log watcher unavailable, falling back to polling", map[string]any{
			"error": err.Error(),
		})
		return t.run(ctx, emit, nil, nil)
	}
	defer watcher.Close()

	// Watch the directory: the log file itself may not exist yet, and
	// rotation replaces it.
	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		t.log.Warn("log directory not watchable, falling back to polling", map[string]any{
			"dir": dir, "error": err.Error(),
		})
	}
	return t.run(ctx, emit, watcher.Events, watcher.Errors)
}

// run is the poll loop. Nil watch channels mean poll-only; a closed one
// goes dormant so the ticker keeps the loop alive either way.
func (t *Tailer) run(ctx context.Context, emit func(RawRecord), events chan fsnotify.Event, werrs chan error) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.Poll(emit)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Name == t.path && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				t.Poll(emit)
			}
		case err, ok := <-werrs:
			if !ok {
				werrs = nil
				continue
			}
			if err != nil {
				t.log.Warn("log watcher error", map[string]any{"error": err.Error()})
			}
		case <-ticker.C:
			t.Poll(emit)
		}
	}
}

// Poll reads any new bytes past the current offset and emits the complete
// records found. A missing file is not an error; the swarm may simply not
// have started yet.
func (t *Tailer) Poll(emit func(RawRecord)) {
	f, err := os.Open(t.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("open message log", map[string]any{"path": t.path, "error": err.Error()})
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		// Truncated or rotated: start over.
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.log.Warn("read message log", map[string]any{"path": t.path, "error": err.Error()})
		return
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	lines := bytes.Split(buf, []byte{'\n'})
	t.partial = lines[len(lines)-1] // incomplete tail, possibly empty
	for _, line := range lines[:len(lines)-1] {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// One bad line never blocks the rest of the batch.
			t.log.Warn("skipping unparsable log line", map[string]any{"error": err.Error()})
			continue
		}
		emit(rec)
	}
}
