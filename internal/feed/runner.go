package feed

import (
	"context"
	"time"
)

// Runner wires the tailer, normalizer, and hub into the feed loop. The
// normalizer is only ever touched from the loop goroutine; the tailer
// hands records over on a channel.
type Runner struct {
	tailer *Tailer
	norm   *Normalizer
	hub    *Hub
	tick   time.Duration
}

func NewRunner(tailer *Tailer, norm *Normalizer, hub *Hub, tick time.Duration) *Runner {
	return &Runner{tailer: tailer, norm: norm, hub: hub, tick: tick}
}

// Run drives the loop until ctx is cancelled. Every ingested record and
// every tick republishes the snapshot; the hub's debounce keeps burst
// publishes from flooding subscribers. The tick also fires with no new
// messages at all, which is what lets workers decay to idle and inactive.
func (r *Runner) Run(ctx context.Context) error {
	records := make(chan RawRecord, 64)
	tailDone := make(chan error, 1)
	go func() {
		tailDone <- r.tailer.Run(ctx, func(rec RawRecord) {
			select {
			case records <- rec:
			case <-ctx.Done():
			}
		})
	}()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-tailDone:
			// Without the tailer the feed would serve empty snapshots
			// forever; a dead tailer takes the loop down with it.
			return err
		case rec := <-records:
			if _, ok := r.norm.Ingest(rec, time.Now()); ok {
				r.hub.Publish(r.norm.Snapshot(time.Now()))
			}
		case <-ticker.C:
			r.hub.Publish(r.norm.Snapshot(time.Now()))
		}
	}
}
