package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/switcher"
	"github.com/joaoalves/claude-use-bar/internal/usage"
)

// UsageProvider is the slice of the poll engine the terminal UI needs.
type UsageProvider interface {
	Usages() []usage.AccountUsage
	ActiveAccountUUID() string
	RefreshAll(ctx context.Context)
	ReloadActiveAccount()
}

// AccountSwitcher performs the switch transaction for the selected account.
type AccountSwitcher interface {
	Switch(id uuid.UUID, force bool) (switcher.Result, error)
}

type Options struct {
	Provider  UsageProvider
	Switcher  AccountSwitcher
	Interval  time.Duration
	Timeout   time.Duration
	NoColor   bool
	AltScreen bool
}

type Model struct {
	provider UsageProvider
	switcher AccountSwitcher
	interval time.Duration
	timeout  time.Duration

	width  int
	height int

	now time.Time

	rows       []usage.AccountUsage
	activeUUID string
	selected   int

	refreshing  bool
	switching   bool
	nextFetchAt time.Time
	status      string
	statusBad   bool

	styles styles
}

type styles struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	accent  lipgloss.Style
	error   lipgloss.Style
	active  lipgloss.Style
	cursor  lipgloss.Style
	loading lipgloss.Style
}

type pollTickMsg struct {
	at time.Time
}

type clockTickMsg struct {
	at time.Time
}

type refreshDoneMsg struct {
	at time.Time
}

type switchResultMsg struct {
	result switcher.Result
	err    error
}

const (
	defaultInterval = 45 * time.Second
	defaultTimeout  = 10 * time.Second
)

func NewModel(opts Options) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := time.Now().UTC()

	m := Model{
		provider:    opts.Provider,
		switcher:    opts.Switcher,
		interval:    interval,
		timeout:     timeout,
		now:         now,
		refreshing:  true,
		nextFetchAt: now.Add(interval),
		styles:      defaultStyles(opts.NoColor),
	}
	m.reloadRows()
	return m
}

func defaultStyles(noColor bool) styles {
	basePanel := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if noColor {
		return styles{
			title:   lipgloss.NewStyle().Bold(true),
			dim:     lipgloss.NewStyle(),
			panel:   basePanel,
			label:   lipgloss.NewStyle().Bold(true),
			value:   lipgloss.NewStyle(),
			ok:      lipgloss.NewStyle().Bold(true),
			warn:    lipgloss.NewStyle().Bold(true),
			bad:     lipgloss.NewStyle().Bold(true),
			accent:  lipgloss.NewStyle().Bold(true),
			error:   lipgloss.NewStyle().Bold(true),
			active:  lipgloss.NewStyle().Bold(true),
			cursor:  lipgloss.NewStyle().Reverse(true),
			loading: lipgloss.NewStyle(),
		}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		panel:   basePanel.BorderForeground(lipgloss.Color("61")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("109")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		ok:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		bad:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		cursor:  lipgloss.NewStyle().Reverse(true),
		loading: lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.provider, m.timeout), pollCmd(m.interval), clockCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(v)
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
	case pollTickMsg:
		m.nextFetchAt = v.at.UTC().Add(m.interval)
		cmds := []tea.Cmd{pollCmd(m.interval)}
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, refreshCmd(m.provider, m.timeout))
		}
		return m, tea.Batch(cmds...)
	case clockTickMsg:
		m.now = v.at.UTC()
		m.reloadRows()
		return m, clockCmd()
	case refreshDoneMsg:
		m.refreshing = false
		m.reloadRows()
		return m, nil
	case switchResultMsg:
		m.switching = false
		if v.err != nil {
			m.statusBad = true
			if errors.Is(v.err, switcher.ErrClaudeRunning) {
				m.status = "Claude Code is running; press F to force the switch"
			} else {
				m.status = v.err.Error()
			}
			return m, nil
		}
		m.statusBad = false
		m.status = fmt.Sprintf("switched to %s; restart Claude Code to pick it up", v.result.Account.EmailAddress)
		m.reloadRows()
		m.refreshing = true
		return m, refreshCmd(m.provider, m.timeout)
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return m, nil
	case "r":
		if !m.refreshing {
			m.refreshing = true
			return m, refreshCmd(m.provider, m.timeout)
		}
		return m, nil
	case "enter":
		return m.startSwitch(false)
	case "f", "F":
		return m.startSwitch(true)
	}
	return m, nil
}

func (m Model) startSwitch(force bool) (tea.Model, tea.Cmd) {
	if m.switching || m.selected >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.selected]
	if row.Account.AccountUUID == m.activeUUID {
		m.statusBad = false
		m.status = row.Account.EmailAddress + " is already active"
		return m, nil
	}
	m.switching = true
	m.statusBad = false
	m.status = "switching to " + row.Account.EmailAddress + "..."
	return m, switchCmd(m.switcher, m.provider, row.Account.ID, force)
}

// reloadRows pulls the latest engine snapshot and keeps the cursor on a
// valid row.
func (m *Model) reloadRows() {
	if m.provider == nil {
		return
	}
	m.rows = m.provider.Usages()
	m.activeUUID = m.provider.ActiveAccountUUID()
	if m.selected >= len(m.rows) {
		m.selected = max(0, len(m.rows)-1)
	}
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "initializing..."
	}

	header := m.renderHeader()
	body := m.renderBody()
	footer := m.renderFooter()

	top := lipgloss.JoinVertical(lipgloss.Left, header, body, "")
	combined := pinFooterToBottom(top, footer, m.height)
	return clipToViewport(combined, m.width, m.height)
}

func (m Model) renderHeader() string {
	title := m.styles.title.Render(" claude use bar ")

	stateText := "idle"
	stateStyle := m.styles.dim
	if m.switching {
		stateText = "switching"
		stateStyle = m.styles.loading
	} else if m.refreshing {
		stateText = "refreshing"
		stateStyle = m.styles.loading
	} else if len(m.rows) > 0 {
		stateText = "watching"
		stateStyle = m.styles.ok
	}

	left := title + "  " + m.styles.label.Render("state: ") + stateStyle.Render(stateText)
	if !m.nextFetchAt.IsZero() {
		refreshText := "[next refresh in " + humanDuration(m.nextFetchAt.Sub(m.now)) + "]"
		left += " " + m.styles.dim.Render(refreshText)
	}
	right := m.styles.dim.Render("utc " + m.now.Format("2006-01-02 15:04:05"))
	return joinWithPaddingKeepRight(left, right, m.width)
}

func (m Model) renderBody() string {
	contentWidth := max(20, m.width-4)

	if len(m.rows) == 0 {
		empty := m.styles.dim.Render("no accounts yet; add one with `claude-use-bar accounts add`")
		return m.styles.panel.Width(contentWidth).Render(empty)
	}

	lines := make([]string, 0, len(m.rows))
	maxLineWidth := max(8, contentWidth-4)
	for i, row := range m.rows {
		line := m.renderAccountLine(row, i == m.selected)
		lines = append(lines, ansi.Truncate(line, maxLineWidth, "..."))
	}
	return m.styles.panel.Width(contentWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) renderAccountLine(row usage.AccountUsage, selected bool) string {
	marker := "  "
	if row.Account.AccountUUID == m.activeUUID && m.activeUUID != "" {
		marker = m.styles.active.Render("* ")
	}

	identity := row.Account.DisplayName
	if identity == "" {
		identity = row.Account.EmailAddress
	}
	identity = padOrTrim(identity, 24)

	line := marker + m.styles.value.Render(identity) + "  " + m.renderUsageCell(row.State)
	if selected {
		return m.styles.cursor.Render("> ") + line
	}
	return "  " + line
}

func (m Model) renderUsageCell(state usage.LoadingState) string {
	switch state.Phase() {
	case usage.PhaseLoading:
		return m.styles.loading.Render("loading...")
	case usage.PhaseErrored:
		err, _ := state.Err()
		return m.styles.error.Render(shortError(err))
	case usage.PhaseLoaded:
		snap, _, _ := state.Snapshot()
		percent := snap.UtilizationPercent()
		style := percentStyle(percent, m.styles)
		cell := progressBar(percent, 20) + " " + style.Render(fmt.Sprintf("%3d%%", percent))
		cell += " " + m.styles.dim.Render("resets in "+humanDuration(snap.FiveHour.ResetsAt.Sub(m.now)))
		if snap.SevenDay != nil {
			weekly := snap.SevenDay.Percent()
			cell += "  " + m.styles.label.Render("wk ") + percentStyle(weekly, m.styles).Render(fmt.Sprintf("%d%%", weekly))
		}
		return cell
	default:
		return m.styles.dim.Render("--")
	}
}

func (m Model) renderFooter() string {
	help := m.styles.dim.Render("up/down select · enter switch · F force · r refresh · q quit")
	if m.status == "" {
		return help
	}
	statusStyle := m.styles.ok
	if m.statusBad {
		statusStyle = m.styles.error
	}
	return statusStyle.Render(m.status) + "\n" + help
}

func shortError(err *usage.UsageError) string {
	if err == nil {
		return "error"
	}
	switch err.Kind {
	case usage.ErrorInvalidToken:
		return "token expired"
	case usage.ErrorRateLimited:
		return "rate limited"
	case usage.ErrorNetwork:
		return "network error"
	default:
		return "error"
	}
}

func progressBar(percent, width int) string {
	if width < 2 {
		width = 2
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func padOrTrim(s string, width int) string {
	s = ansi.Truncate(s, width, "...")
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func percentStyle(percent int, styles styles) lipgloss.Style {
	switch {
	case percent >= 100:
		return styles.bad
	case percent >= 80:
		return styles.warn
	default:
		return styles.ok
	}
}

func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollTickMsg{at: t}
	})
}

func clockCmd() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg{at: t}
	})
}

func refreshCmd(provider UsageProvider, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		provider.RefreshAll(ctx)
		return refreshDoneMsg{at: time.Now()}
	}
}

func switchCmd(sw AccountSwitcher, provider UsageProvider, id uuid.UUID, force bool) tea.Cmd {
	return func() tea.Msg {
		result, err := sw.Switch(id, force)
		if err == nil {
			// Pick up the new active account before the next render.
			provider.ReloadActiveAccount()
		}
		return switchResultMsg{result: result, err: err}
	}
}

func Run(opts Options) error {
	model := NewModel(opts)
	progOpts := []tea.ProgramOption{}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	prog := tea.NewProgram(model, progOpts...)
	_, err := prog.Run()
	return err
}

func joinWithPaddingKeepRight(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	rightWidth := lipgloss.Width(right)
	if rightWidth >= width {
		return truncateRunes(right, width)
	}
	maxLeftWidth := width - rightWidth - 1
	if maxLeftWidth < 0 {
		maxLeftWidth = 0
	}
	left = truncateRunes(left, maxLeftWidth)
	leftWidth := lipgloss.Width(left)
	padding := width - leftWidth - rightWidth
	if padding < 1 {
		padding = 1
	}
	return left + strings.Repeat(" ", padding) + right
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxRunes, "")
}

func clipToViewport(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i := range lines {
		lines[i] = truncateRunes(lines[i], width)
		pad := width - lipgloss.Width(lines[i])
		if pad > 0 {
			lines[i] += strings.Repeat(" ", pad)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func pinFooterToBottom(top, footer string, height int) string {
	if height <= 0 {
		return ""
	}
	footerLines := []string{}
	if footer != "" {
		footerLines = strings.Split(footer, "\n")
	}
	topLines := []string{}
	if top != "" {
		topLines = strings.Split(top, "\n")
	}

	maxTopLines := height - len(footerLines)
	if maxTopLines < 0 {
		maxTopLines = 0
	}
	if len(topLines) > maxTopLines {
		topLines = topLines[:maxTopLines]
	}
	for len(topLines) < maxTopLines {
		topLines = append(topLines, "")
	}

	all := append(topLines, footerLines...)
	if len(all) == 0 {
		return ""
	}
	return strings.Join(all, "\n")
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return d.String()
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
