package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hivedash/internal/client"
	"hivedash/internal/feed"
)

// renderMetrics shows the swarm-wide counters, the current session, and a
// per-type message breakdown.
func renderMetrics(d feed.DashboardData, th Theme) string {
	m := d.PerformanceMetrics
	s := d.CurrentSession

	var b strings.Builder
	b.WriteString(th.PaneTitle.Render("performance"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  tasks        %d total, %d completed\n", m.TotalTasks, m.CompletedTasks)
	fmt.Fprintf(&b, "  success      %.0f%%\n", m.SuccessRate*100)
	if m.AvgResponseTime > 0 {
		fmt.Fprintf(&b, "  avg response %s\n", time.Duration(m.AvgResponseTime*float64(time.Millisecond)).Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "  workers      %d active of %d\n", m.ActiveWorkers, len(d.Workers))

	b.WriteByte('\n')
	b.WriteString(th.PaneTitle.Render("session"))
	b.WriteByte('\n')
	id := s.ID
	if id == "" {
		id = "—"
	}
	fmt.Fprintf(&b, "  id           %s\n", id)
	fmt.Fprintf(&b, "  status       %s\n", s.Status)
	fmt.Fprintf(&b, "  duration     %s\n", time.Duration(s.Duration*float64(time.Second)).Round(time.Second))
	fmt.Fprintf(&b, "  messages     %d\n", s.TotalMessages)

	counts := client.MessageCountsByType(d)
	if len(counts) > 0 {
		b.WriteByte('\n')
		b.WriteString(th.PaneTitle.Render("messages by type"))
		b.WriteByte('\n')
		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "  %s %-16s %d\n", typeIcon(feed.MessageType(t)), t, counts[feed.MessageType(t)])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
