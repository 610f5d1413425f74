package client

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivedash/internal/feed"
)

func snapshot(ts string, msgs ...feed.Message) feed.DashboardData {
	return feed.DashboardData{Timestamp: ts, RecentMessages: msgs}
}

func msg(id, ts, source, target string, mt feed.MessageType) feed.Message {
	return feed.Message{ID: id, Timestamp: ts, Source: source, Target: target, MessageType: mt}
}

func TestStore_RejectsOlderSnapshot(t *testing.T) {
	s := NewStore(time.Second, 10)
	now := time.Now()

	require.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:05Z"), now))
	assert.False(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:01Z"), now), "older snapshot must be discarded")

	got, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "2026-08-30T10:00:05Z", got.Timestamp)

	// Equal or newer is fine.
	assert.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:05Z"), now))
	assert.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:09Z"), now))
}

func TestStore_ErrorKeepsLastKnownGoodSnapshot(t *testing.T) {
	s := NewStore(time.Second, 10)
	now := time.Now()

	require.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:00Z"), now))
	s.SetError(errors.New("connection lost"), false)

	got, ok := s.Snapshot()
	assert.True(t, ok, "error must not blank the snapshot")
	assert.Equal(t, "2026-08-30T10:00:00Z", got.Timestamp)

	err, terminal := s.Err()
	assert.Error(t, err)
	assert.False(t, terminal)

	s.SetError(ErrReconnectExhausted, true)
	_, terminal = s.Err()
	assert.True(t, terminal)

	// Reconnecting successfully clears the flag.
	s.Apply(Event{Kind: KindState, State: StateConnected}, now)
	err, terminal = s.Err()
	assert.NoError(t, err)
	assert.False(t, terminal)
}

func TestStore_FlowsSpawnOncePerMessage(t *testing.T) {
	s := NewStore(time.Minute, 10)
	now := time.Now()

	m1 := msg("m1", "2026-08-30T10:00:00Z", "queen", "developer", feed.TypeTaskAssignment)
	require.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:00Z", m1), now))
	require.Len(t, s.Flows(now), 1)

	// The same message in the next snapshot spawns nothing new.
	m2 := msg("m2", "2026-08-30T10:00:01Z", "developer", "queen", feed.TypeError)
	require.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:01Z", m1, m2), now))
	flows := s.Flows(now)
	require.Len(t, flows, 2)
	assert.Equal(t, FlowDelivered, flows[0].Status)
	assert.Equal(t, FlowFailed, flows[1].Status, "error messages render as failed flows")
}

func TestStore_FlowsExpireAndAreCapped(t *testing.T) {
	s := NewStore(50*time.Millisecond, 3)
	now := time.Now()

	var msgs []feed.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, msg(fmt.Sprintf("m%d", i), "2026-08-30T10:00:00Z", "queen", "developer", feed.TypeDirect))
	}
	require.True(t, s.ApplySnapshot(snapshot("2026-08-30T10:00:00Z", msgs...), now))

	flows := s.Flows(now)
	require.Len(t, flows, 3, "flow count must be capped")
	// Oldest dropped first: the survivors are the most recent spawns.
	assert.Equal(t, "flow-m5", flows[0].ID)
	assert.Equal(t, "flow-m7", flows[2].ID)

	assert.Empty(t, s.Flows(now.Add(time.Second)), "flows expire after their TTL")
}

func TestWorkersByStatus_PartitionsConsistently(t *testing.T) {
	d := feed.DashboardData{Workers: []feed.Worker{
		{Name: "queen", Status: feed.StatusActive},
		{Name: "developer", Status: feed.StatusWorking},
		{Name: "tester", Status: feed.StatusIdle},
		{Name: "ghost", Status: feed.StatusInactive},
		{Name: "reviewer", Status: feed.StatusActive},
	}}
	parts := WorkersByStatus(d)
	assert.Len(t, parts[feed.StatusActive], 2)
	assert.Len(t, parts[feed.StatusWorking], 1)
	assert.Len(t, parts[feed.StatusIdle], 1)
	assert.Len(t, parts[feed.StatusInactive], 1)

	total := 0
	for _, ws := range parts {
		total += len(ws)
	}
	assert.Equal(t, len(d.Workers), total, "partition must cover every worker exactly once")
}

func TestMessageCountsByType_IncludesUnknownTypes(t *testing.T) {
	d := snapshot("2026-08-30T10:00:00Z",
		msg("m1", "2026-08-30T10:00:00Z", "a", "b", feed.TypeDirect),
		msg("m2", "2026-08-30T10:00:01Z", "a", "b", feed.TypeDirect),
		msg("m3", "2026-08-30T10:00:02Z", "a", "b", feed.MessageType("prophecy")),
	)
	counts := MessageCountsByType(d)
	assert.Equal(t, 2, counts[feed.TypeDirect])
	assert.Equal(t, 1, counts[feed.MessageType("prophecy")])
}

func TestMessagesForWorker_MatchesEitherDirection(t *testing.T) {
	d := snapshot("2026-08-30T10:00:00Z",
		msg("m1", "2026-08-30T10:00:00Z", "queen", "developer", feed.TypeDirect),
		msg("m2", "2026-08-30T10:00:01Z", "tester", "queen", feed.TypeDirect),
		msg("m3", "2026-08-30T10:00:02Z", "tester", "reviewer", feed.TypeDirect),
	)
	got := MessagesForWorker(d, "queen")
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestThreads_GroupsUnorderedPairsAndOrdersByActivity(t *testing.T) {
	d := snapshot("2026-08-30T10:00:00Z",
		// queen<->developer, both directions, timestamps shuffled.
		msg("m2", "2026-08-30T10:00:05Z", "developer", "queen", feed.TypeTaskResult),
		msg("m1", "2026-08-30T10:00:00Z", "queen", "developer", feed.TypeTaskAssignment),
		// quieter pair
		msg("m3", "2026-08-30T10:00:02Z", "queen", "tester", feed.TypeDirect),
	)
	threads := Threads(d)
	require.Len(t, threads, 2)

	// Most recent activity first: queen/developer at 10:00:05.
	assert.Equal(t, "developer", threads[0].A)
	assert.Equal(t, "queen", threads[0].B)
	require.Len(t, threads[0].Messages, 2)
	// Inside a thread, timestamp ascending regardless of direction.
	assert.Equal(t, "m1", threads[0].Messages[0].ID)
	assert.Equal(t, "m2", threads[0].Messages[1].ID)

	assert.Equal(t, "queen", threads[1].A)
	assert.Equal(t, "tester", threads[1].B)
}

func TestScenarioThread_TwoMessagesOneGroup(t *testing.T) {
	d := snapshot("2026-08-30T10:00:10Z",
		msg("m1", "2026-08-30T10:00:00Z", "queen", "developer", feed.TypeTaskAssignment),
		msg("m2", "2026-08-30T10:00:05Z", "developer", "queen", feed.TypeTaskResult),
	)
	threads := Threads(d)
	require.Len(t, threads, 1, "both directions collapse into one conversation")
	require.Len(t, threads[0].Messages, 2)
	assert.Equal(t, "m1", threads[0].Messages[0].ID)
	assert.Equal(t, "m2", threads[0].Messages[1].ID)
}

func TestStore_SeenIDsStayBoundedByRing(t *testing.T) {
	s := NewStore(time.Hour, 100)
	now := time.Now()

	// A ring of one: every snapshot has evicted all earlier messages.
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		ts := base.Add(time.Duration(i) * time.Second).Format(time.RFC3339)
		m := msg(fmt.Sprintf("m%d", i), ts, "queen", "developer", feed.TypeDirect)
		require.True(t, s.ApplySnapshot(snapshot(ts, m), now))
	}

	// Every message still spawned exactly one flow on its way through.
	assert.Len(t, s.Flows(now), 50)
	s.mu.Lock()
	seen := len(s.seen)
	s.mu.Unlock()
	assert.Equal(t, 1, seen, "ids evicted from the ring must be forgotten")
}
