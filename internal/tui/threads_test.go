package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"hivedash/internal/feed"
)

func threadData() feed.DashboardData {
	return feed.DashboardData{RecentMessages: []feed.Message{
		{ID: "m1", Timestamp: "2026-08-30T10:00:00Z", Source: "queen", Target: "developer",
			MessageType: feed.TypeTaskAssignment, Message: "implement feature X"},
		{ID: "m2", Timestamp: "2026-08-30T10:00:05Z", Source: "developer", Target: "queen",
			MessageType: feed.TypeTaskResult, Message: "done"},
		{ID: "m3", Timestamp: "2026-08-30T10:00:07Z", Source: "queen", Target: "tester",
			MessageType: feed.TypeDirect, Message: "please verify", Priority: feed.PriorityHigh},
	}}
}

func TestRenderThreads_Unfiltered(t *testing.T) {
	out := renderThreads(threadData(), "", NewTheme(), 100)
	for _, want := range []string{"developer ⇄ queen", "queen ⇄ tester", "implement feature X", "done", "please verify"} {
		if !strings.Contains(out, want) {
			t.Fatalf("threads view missing %q:\n%s", want, out)
		}
	}
}

func TestRenderThreads_FilterNarrowsToOneType(t *testing.T) {
	out := renderThreads(threadData(), feed.TypeTaskResult, NewTheme(), 100)
	if !strings.Contains(out, "done") {
		t.Fatalf("filtered view lost the matching message:\n%s", out)
	}
	if strings.Contains(out, "implement feature X") || strings.Contains(out, "please verify") {
		t.Fatalf("filter leaked other types:\n%s", out)
	}
}

func TestRenderThreads_FilterWithNoMatches(t *testing.T) {
	out := renderThreads(threadData(), feed.TypeError, NewTheme(), 100)
	if !strings.Contains(out, "no error messages") {
		t.Fatalf("expected empty-filter notice, got:\n%s", out)
	}
}

func TestRenderThreads_EmptySnapshot(t *testing.T) {
	out := renderThreads(feed.DashboardData{}, "", NewTheme(), 100)
	if !strings.Contains(out, "no conversations yet") {
		t.Fatalf("expected empty state, got:\n%s", out)
	}
}

func TestTypeIcon_FallsBackForUnknownTypes(t *testing.T) {
	if typeIcon(feed.TypeTaskAssignment) == typeIcon(feed.MessageType("prophecy")) {
		t.Fatal("known type should have its own icon")
	}
	if typeIcon(feed.MessageType("prophecy")) != typeIcon(feed.MessageType("omen")) {
		t.Fatal("all unknown types share the fallback icon")
	}
}

func TestRenderMessageLine_TruncatesLongBodies(t *testing.T) {
	m := feed.Message{
		ID: "m", Timestamp: "2026-08-30T10:00:00Z", Source: "queen", Target: "developer",
		MessageType: feed.TypeDirect, Message: strings.Repeat("x", 500),
	}
	out := renderMessageLine(m, NewTheme(), 60)
	if strings.Count(out, "x") >= 500 {
		t.Fatal("body should be truncated to the pane width")
	}
	if !strings.Contains(out, "…") {
		t.Fatalf("expected ellipsis on truncation: %q", out)
	}
}

func TestRenderMessageLine_TruncationIsRuneSafe(t *testing.T) {
	m := feed.Message{
		ID: "m", Timestamp: "2026-08-30T10:00:00Z", Source: "queen", Target: "developer",
		MessageType: feed.TypeDirect, Message: strings.Repeat("🐝", 300),
	}
	out := renderMessageLine(m, NewTheme(), 60)
	if !utf8.ValidString(out) {
		t.Fatalf("truncation split a rune: %q", out)
	}
	if !strings.Contains(out, "…") {
		t.Fatalf("expected ellipsis on truncation: %q", out)
	}
}
