package tui

import (
	"fmt"
	"strings"
	"time"

	"hivedash/internal/client"
	"hivedash/internal/feed"
)

// typeIcon maps well-known message types to a glyph; anything outside the
// taxonomy falls back to a generic envelope.
func typeIcon(t feed.MessageType) string {
	switch t {
	case feed.TypeTaskAssignment:
		return "📋"
	case feed.TypeTaskResult:
		return "✅"
	case feed.TypeResponse:
		return "↩"
	case feed.TypeCoordination:
		return "🤝"
	case feed.TypeStatusUpdate:
		return "ℹ"
	case feed.TypeError:
		return "✗"
	case feed.TypeDirect:
		return "✉"
	default:
		return "✉"
	}
}

// renderThreads shows conversations grouped by worker pair, newest
// activity first, optionally filtered to one message type.
func renderThreads(d feed.DashboardData, filter feed.MessageType, th Theme, width int) string {
	threads := client.Threads(d)
	if len(threads) == 0 {
		return th.TopBarMeta.Render("no conversations yet")
	}

	var b strings.Builder
	for _, thread := range threads {
		msgs := thread.Messages
		if filter != "" {
			msgs = nil
			for _, m := range thread.Messages {
				if m.MessageType == filter {
					msgs = append(msgs, m)
				}
			}
			if len(msgs) == 0 {
				continue
			}
		}
		head := fmt.Sprintf("%s ⇄ %s", thread.A, thread.B)
		b.WriteString(th.ThreadHead.Render(head))
		b.WriteString(th.MsgMeta.Render(fmt.Sprintf("  %d messages", len(msgs))))
		b.WriteByte('\n')
		for _, m := range msgs {
			b.WriteString(renderMessageLine(m, th, width))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return th.TopBarMeta.Render(fmt.Sprintf("no %s messages", filter))
	}
	return out
}

func renderMessageLine(m feed.Message, th Theme, width int) string {
	clock := m.Timestamp
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if at, err := time.Parse(layout, m.Timestamp); err == nil {
			clock = at.Format("15:04:05")
			break
		}
	}
	meta := th.MsgMeta.Render(fmt.Sprintf("  [%s] %s %s→%s", clock, typeIcon(m.MessageType), m.Source, m.Target))
	body := strings.SplitN(m.Message, "\n", 2)[0]
	budget := width - 30
	if budget < 10 {
		budget = 10
	}
	if r := []rune(body); len(r) > budget {
		body = string(r[:budget-1]) + "…"
	}
	line := meta + " " + body
	if m.Priority == feed.PriorityHigh {
		line += " " + th.ErrBanner.Render("!")
	}
	return line
}
