package tui

import (
	"fmt"
	"strings"
	"time"

	"hivedash/internal/client"
	"hivedash/internal/feed"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tab int

const (
	tabTopology tab = iota
	tabThreads
	tabMetrics
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabTopology:
		return "topology"
	case tabThreads:
		return "threads"
	default:
		return "metrics"
	}
}

// messageFilters is the cycle order for the thread filter; empty means
// show everything.
var messageFilters = []feed.MessageType{
	"",
	feed.TypeTaskAssignment,
	feed.TypeTaskResult,
	feed.TypeDirect,
	feed.TypeResponse,
	feed.TypeCoordination,
	feed.TypeStatusUpdate,
	feed.TypeError,
}

type keyMap struct {
	NextTab   key.Binding
	Filter    key.Binding
	Reconnect key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter type")),
		Reconnect: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Filter, k.Reconnect, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.NextTab, k.Filter}, {k.Reconnect, k.Help, k.Quit}}
}

type transportMsg struct{ ev client.Event }
type tickMsg time.Time

// Model is the dashboard TUI. It owns nothing but presentation: the store
// holds the data, the transport owns the connection, and unmounting quits
// by closing the transport so no timer or socket outlives the program.
type Model struct {
	store     *client.Store
	transport *client.Transport
	roles     *feed.RoleTable

	theme  Theme
	keys   keyMap
	help   help.Model
	spin   spinner.Model
	tab    tab
	filter int

	width  int
	height int
	ready  bool
}

func NewModel(store *client.Store, transport *client.Transport, roles *feed.RoleTable) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	th := NewTheme()
	sp.Style = th.Spinner
	return &Model{
		store:     store,
		transport: transport,
		roles:     roles,
		theme:     th,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spin:      sp,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), m.tick(), m.spin.Tick)
}

// waitEvent blocks on the transport's event channel; each delivery
// re-arms itself from Update.
func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.transport.Events()
		if !ok {
			return nil
		}
		return transportMsg{ev: ev}
	}
}

// tick re-renders on a short cadence so flow edges expire and the
// staleness clock advances without new data.
func (m *Model) tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.transport.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextTab):
			m.tab = (m.tab + 1) % tabCount
		case key.Matches(msg, m.keys.Filter):
			m.filter = (m.filter + 1) % len(messageFilters)
		case key.Matches(msg, m.keys.Reconnect):
			m.store.ClearError()
			m.transport.Reconnect()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case transportMsg:
		m.store.Apply(msg.ev, time.Now())
		return m, m.waitEvent()

	case tickMsg:
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	if !m.ready {
		return "starting…"
	}
	th := m.theme
	top := m.renderTopBar()
	footer := m.renderFooter()
	bodyH := m.height - lipgloss.Height(top) - lipgloss.Height(footer) - 2

	snap, ok := m.store.Snapshot()
	var body string
	if !ok {
		body = m.spin.View() + " " + th.TopBarMeta.Render("waiting for first snapshot")
	} else {
		switch m.tab {
		case tabTopology:
			body = renderTopology(snap, m.store.Flows(time.Now()), m.roles, th, m.width-4, bodyH)
		case tabThreads:
			body = renderThreads(snap, messageFilters[m.filter], th, m.width-4)
		default:
			body = renderMetrics(snap, th)
		}
	}
	pane := th.Pane.Width(m.width - 2).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, top, pane, footer)
}

func (m *Model) renderTopBar() string {
	th := m.theme
	parts := []string{th.TopBarTitle.Render("hivedash"), th.TopBarMeta.Render(m.tab.title())}

	state := m.store.State()
	switch state {
	case client.StateConnected:
		parts = append(parts, th.StatusActive.Render("● connected"))
	case client.StateConnecting:
		parts = append(parts, m.spin.View()+th.StatusIdle.Render("connecting"))
	default:
		parts = append(parts, th.ErrBanner.Render("○ disconnected"))
	}

	if snap, ok := m.store.Snapshot(); ok {
		if snap.CurrentSession.ID != "" {
			parts = append(parts, th.TopBarMeta.Render("session "+snap.CurrentSession.ID))
		}
		if state != client.StateConnected {
			parts = append(parts, th.StatusIdle.Render("showing last known data"))
		}
	}
	if f := messageFilters[m.filter]; f != "" && m.tab == tabThreads {
		parts = append(parts, th.TopBarMeta.Render("filter: "+string(f)))
	}
	return th.TopBar.Render(strings.Join(parts, "  "))
}

func (m *Model) renderFooter() string {
	th := m.theme
	if err, terminal := m.store.Err(); err != nil {
		msg := err.Error()
		if terminal {
			msg = fmt.Sprintf("%s — press r to retry", msg)
		}
		return th.ErrBanner.Render(msg)
	}
	return th.Footer.Render(m.help.View(m.keys))
}

// Run starts the transport and blocks inside bubbletea until quit.
func Run(store *client.Store, transport *client.Transport, roles *feed.RoleTable) error {
	transport.Start()
	defer transport.Close()
	model := NewModel(store, transport, roles)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
