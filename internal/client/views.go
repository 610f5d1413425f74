package client

import (
	"sort"
	"time"

	"hivedash/internal/feed"
)

// Derived views are pure functions over one immutable snapshot. Nothing
// here caches; callers hold a snapshot for the duration of a render tick
// and every view computed from it is mutually consistent.

// WorkersByStatus partitions the snapshot's workers by derived status.
func WorkersByStatus(d feed.DashboardData) map[feed.WorkerStatus][]feed.Worker {
	out := map[feed.WorkerStatus][]feed.Worker{}
	for _, w := range d.Workers {
		out[w.Status] = append(out[w.Status], w)
	}
	return out
}

// MessageCountsByType tallies recent messages per type, including unknown
// types carried verbatim.
func MessageCountsByType(d feed.DashboardData) map[feed.MessageType]int {
	out := map[feed.MessageType]int{}
	for _, m := range d.RecentMessages {
		out[m.MessageType]++
	}
	return out
}

// MessagesForWorker returns the recent messages a worker sent or
// received, in arrival order.
func MessagesForWorker(d feed.DashboardData, name string) []feed.Message {
	var out []feed.Message
	for _, m := range d.RecentMessages {
		if m.Source == name || m.Target == name {
			out = append(out, m)
		}
	}
	return out
}

// Thread is one conversation between an unordered pair of workers.
type Thread struct {
	// A and B are the pair in lexical order; the grouping ignores
	// message direction.
	A, B     string
	Messages []feed.Message
	// Last is the most recent message timestamp in the thread.
	Last time.Time
}

// Threads groups recent messages by unordered {source,target} pair. Each
// thread is sorted by timestamp ascending; threads are ordered by most
// recent activity descending.
func Threads(d feed.DashboardData) []Thread {
	byPair := map[[2]string]*Thread{}
	var order [][2]string
	for _, m := range d.RecentMessages {
		a, b := m.Source, m.Target
		if b < a {
			a, b = b, a
		}
		key := [2]string{a, b}
		th, ok := byPair[key]
		if !ok {
			th = &Thread{A: a, B: b}
			byPair[key] = th
			order = append(order, key)
		}
		th.Messages = append(th.Messages, m)
		if at := messageTime(m); at.After(th.Last) {
			th.Last = at
		}
	}

	out := make([]Thread, 0, len(order))
	for _, key := range order {
		th := byPair[key]
		sort.SliceStable(th.Messages, func(i, j int) bool {
			return messageTime(th.Messages[i]).Before(messageTime(th.Messages[j]))
		})
		out = append(out, *th)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Last.After(out[j].Last)
	})
	return out
}

func messageTime(m feed.Message) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if at, err := time.Parse(layout, m.Timestamp); err == nil {
			return at
		}
	}
	return time.Time{}
}
