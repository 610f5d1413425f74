package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

type ThemeName string

const (
	ThemeHive     ThemeName = "hive"
	ThemeMidnight ThemeName = "midnight"
)

type Theme struct {
	Name ThemeName

	// Colors
	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor
	Accent      lipgloss.AdaptiveColor
	Success     lipgloss.AdaptiveColor
	Warn        lipgloss.AdaptiveColor
	Error       lipgloss.AdaptiveColor
	Border      lipgloss.AdaptiveColor

	// Styles
	TopBar      lipgloss.Style
	TopBarTitle lipgloss.Style
	TopBarMeta  lipgloss.Style
	Pane        lipgloss.Style
	PaneTitle   lipgloss.Style
	Footer      lipgloss.Style
	Spinner     lipgloss.Style

	StatusActive   lipgloss.Style
	StatusWorking  lipgloss.Style
	StatusIdle     lipgloss.Style
	StatusInactive lipgloss.Style

	FlowEdge   lipgloss.Style
	FlowFailed lipgloss.Style
	ThreadHead lipgloss.Style
	MsgMeta    lipgloss.Style
	ErrBanner  lipgloss.Style
}

func NewTheme() Theme {
	name := ThemeName(os.Getenv("HIVEDASH_THEME"))
	switch name {
	case ThemeMidnight:
		return midnightTheme()
	default:
		return hiveTheme()
	}
}

func hiveTheme() Theme {
	t := Theme{Name: ThemeHive}
	t.TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2933", Dark: "#E5E7EB"}
	t.TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	t.Accent = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	t.Success = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	t.Warn = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	t.Error = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	t.Border = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
	return t.build()
}

func midnightTheme() Theme {
	t := Theme{Name: ThemeMidnight}
	t.TextPrimary = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	t.TextMuted = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#6B7280"}
	t.Accent = lipgloss.AdaptiveColor{Light: "#4338CA", Dark: "#818CF8"}
	t.Success = lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#6EE7B7"}
	t.Warn = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FCD34D"}
	t.Error = lipgloss.AdaptiveColor{Light: "#991B1B", Dark: "#FCA5A5"}
	t.Border = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#1F2937"}
	return t.build()
}

func (t Theme) build() Theme {
	t.TopBar = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.TopBarTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.TopBarMeta = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Pane = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.PaneTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(t.Accent)

	t.StatusActive = lipgloss.NewStyle().Foreground(t.Success)
	t.StatusWorking = lipgloss.NewStyle().Foreground(t.Accent)
	t.StatusIdle = lipgloss.NewStyle().Foreground(t.Warn)
	t.StatusInactive = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.FlowEdge = lipgloss.NewStyle().Foreground(t.Accent)
	t.FlowFailed = lipgloss.NewStyle().Foreground(t.Error)
	t.ThreadHead = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.MsgMeta = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.ErrBanner = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	return t
}

func (t Theme) statusStyle(status string) lipgloss.Style {
	switch status {
	case "active":
		return t.StatusActive
	case "working":
		return t.StatusWorking
	case "idle":
		return t.StatusIdle
	default:
		return t.StatusInactive
	}
}
