package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/switcher"
	"github.com/joaoalves/claude-use-bar/internal/usage"
)

type fakeProvider struct {
	rows       []usage.AccountUsage
	activeUUID string
	refreshed  int
	reloaded   int
}

func (f *fakeProvider) Usages() []usage.AccountUsage { return f.rows }
func (f *fakeProvider) ActiveAccountUUID() string    { return f.activeUUID }
func (f *fakeProvider) RefreshAll(context.Context)   { f.refreshed++ }
func (f *fakeProvider) ReloadActiveAccount()         { f.reloaded++ }

type fakeSwitcher struct {
	lastID    uuid.UUID
	lastForce bool
	err       error
}

func (f *fakeSwitcher) Switch(id uuid.UUID, force bool) (switcher.Result, error) {
	f.lastID = id
	f.lastForce = force
	if f.err != nil {
		return switcher.Result{}, f.err
	}
	acct := account.New("b@example.com", "uuid-b", "Bob", "")
	acct.ID = id
	return switcher.Result{Account: acct, RequiresRestart: true}, nil
}

func seededModel() (Model, *fakeProvider, *fakeSwitcher) {
	now := time.Date(2026, 2, 26, 15, 0, 0, 0, time.UTC)

	alice := account.New("a@example.com", "uuid-a", "Alice", "")
	bob := account.New("b@example.com", "uuid-b", "Bob", "")
	bob.Order = 1

	reset := now.Add(90 * time.Minute)
	weekly := 0.69
	snapshot := &usage.Snapshot{
		FiveHour: usage.Period{Utilization: 0.41, ResetsAt: reset},
		SevenDay: &usage.Period{Utilization: weekly, ResetsAt: now.Add(6 * 24 * time.Hour)},
	}

	provider := &fakeProvider{
		rows: []usage.AccountUsage{
			{Account: alice, State: usage.Loaded(snapshot, now.Add(-10*time.Second))},
			{Account: bob, State: usage.Idle()},
		},
		activeUUID: "uuid-a",
	}
	sw := &fakeSwitcher{}

	m := NewModel(Options{
		Provider: provider,
		Switcher: sw,
		Interval: 15 * time.Second,
		Timeout:  8 * time.Second,
		NoColor:  true,
	})
	m.now = now
	m.refreshing = false
	m.nextFetchAt = now.Add(13 * time.Second)
	return m, provider, sw
}

func TestViewFitsViewportAcrossSizes(t *testing.T) {
	sizes := []struct {
		width  int
		height int
	}{
		{60, 18},
		{80, 22},
		{100, 26},
		{140, 34},
	}

	for _, s := range sizes {
		t.Run(strconv.Itoa(s.width)+"x"+strconv.Itoa(s.height), func(t *testing.T) {
			m, _, _ := seededModel()
			m.width = s.width
			m.height = s.height
			out := m.View()
			lines := strings.Split(out, "\n")
			if len(lines) != s.height {
				t.Fatalf("expected %d lines, got %d", s.height, len(lines))
			}
			for i, line := range lines {
				if lipgloss.Width(line) > s.width {
					t.Fatalf("line %d exceeded width: got %d max %d", i+1, lipgloss.Width(line), s.width)
				}
			}
		})
	}
}

func TestViewShowsAccountsWithActiveMarker(t *testing.T) {
	m, _, _ := seededModel()
	m.width = 120
	m.height = 24
	out := m.View()
	if !strings.Contains(out, "Alice") {
		t.Fatalf("expected first account name in output")
	}
	if !strings.Contains(out, "Bob") {
		t.Fatalf("expected second account name in output")
	}
	if !strings.Contains(out, "* ") {
		t.Fatalf("expected active-account marker in output")
	}
	if !strings.Contains(out, "41%") {
		t.Fatalf("expected five-hour percent for the loaded account")
	}
	if !strings.Contains(out, "wk 69%") {
		t.Fatalf("expected weekly percent for the loaded account")
	}
	if !strings.Contains(out, "resets in 1h30m") {
		t.Fatalf("expected reset countdown for the loaded account")
	}
}

func TestViewShowsEmptyStateWithoutAccounts(t *testing.T) {
	m, provider, _ := seededModel()
	provider.rows = nil
	m.reloadRows()
	m.width = 100
	m.height = 20
	out := m.View()
	if !strings.Contains(out, "no accounts yet") {
		t.Fatalf("expected empty-state hint, got:\n%s", out)
	}
}

func TestSelectionMovesWithinBounds(t *testing.T) {
	m, _, _ := seededModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.selected != 1 {
		t.Fatalf("expected selection to move down, got %d", m.selected)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.selected != 1 {
		t.Fatalf("expected selection clamped at last row, got %d", m.selected)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.selected != 0 {
		t.Fatalf("expected selection clamped at first row, got %d", m.selected)
	}
}

func TestEnterOnActiveAccountDoesNotSwitch(t *testing.T) {
	m, _, sw := seededModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil {
		t.Fatalf("expected no command when the selected account is already active")
	}
	if sw.lastID != uuid.Nil {
		t.Fatalf("expected no switch call")
	}
	if !strings.Contains(m.status, "already active") {
		t.Fatalf("expected already-active status, got %q", m.status)
	}
}

func TestEnterSwitchesSelectedAccount(t *testing.T) {
	m, provider, sw := seededModel()
	targetID := provider.rows[1].Account.ID

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected a switch command")
	}
	if !m.switching {
		t.Fatalf("expected switching flag to be set")
	}

	msg := cmd()
	result, ok := msg.(switchResultMsg)
	if !ok {
		t.Fatalf("expected switchResultMsg, got %T", msg)
	}
	if result.err != nil {
		t.Fatalf("unexpected switch error: %v", result.err)
	}
	if sw.lastID != targetID {
		t.Fatalf("expected switch for the selected account")
	}
	if sw.lastForce {
		t.Fatalf("enter must not force the switch")
	}
	if provider.reloaded != 1 {
		t.Fatalf("expected active account reload after a successful switch")
	}

	next, _ = m.Update(msg)
	m = next.(Model)
	if m.switching {
		t.Fatalf("expected switching flag cleared")
	}
	if !strings.Contains(m.status, "restart Claude Code") {
		t.Fatalf("expected restart notice in status, got %q", m.status)
	}
}

func TestForceKeyForcesSwitch(t *testing.T) {
	m, _, sw := seededModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if cmd == nil {
		t.Fatalf("expected a switch command")
	}
	cmd()
	if !sw.lastForce {
		t.Fatalf("expected forced switch")
	}
}

func TestBusySwitchSuggestsForce(t *testing.T) {
	m, _, sw := seededModel()
	sw.err = switcher.ErrClaudeRunning

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	next, _ = m.Update(cmd())
	m = next.(Model)
	if !m.statusBad {
		t.Fatalf("expected error status")
	}
	if !strings.Contains(m.status, "press F to force") {
		t.Fatalf("expected force hint in status, got %q", m.status)
	}
}

func TestSwitchFailureSurfacesError(t *testing.T) {
	m, _, sw := seededModel()
	sw.err = errors.New("keychain locked")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	next, _ = m.Update(cmd())
	m = next.(Model)
	if !m.statusBad || !strings.Contains(m.status, "keychain locked") {
		t.Fatalf("expected surfaced switch error, got %q", m.status)
	}
}

func TestPollTickTriggersRefreshAndReschedules(t *testing.T) {
	m, provider, _ := seededModel()
	at := m.now.Add(15 * time.Second)

	next, cmd := m.Update(pollTickMsg{at: at})
	m = next.(Model)
	if !m.refreshing {
		t.Fatalf("expected refresh in flight after poll tick")
	}
	if !m.nextFetchAt.Equal(at.Add(m.interval)) {
		t.Fatalf("expected next fetch rescheduled from tick time")
	}
	if cmd == nil {
		t.Fatalf("expected batched poll + refresh commands")
	}
	if provider.refreshed != 0 {
		t.Fatalf("refresh must run inside the command, not in Update")
	}
}

func TestPollTickWhileRefreshingDoesNotStack(t *testing.T) {
	m, _, _ := seededModel()
	m.refreshing = true

	next, _ := m.Update(pollTickMsg{at: m.now})
	m = next.(Model)
	if !m.refreshing {
		t.Fatalf("expected refreshing to stay set")
	}
}

func TestRefreshKeyIgnoredWhileRefreshing(t *testing.T) {
	m, _, _ := seededModel()
	m.refreshing = true
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd != nil {
		t.Fatalf("expected no command while a refresh is in flight")
	}
}

func TestErroredRowShowsShortError(t *testing.T) {
	m, provider, _ := seededModel()
	provider.rows[1].State = usage.Errored(&usage.UsageError{Kind: usage.ErrorInvalidToken})
	m.reloadRows()
	m.width = 120
	m.height = 24
	out := m.View()
	if !strings.Contains(out, "token expired") {
		t.Fatalf("expected short token error in output")
	}
}

func TestHeaderIncludesRefreshBracketOnTopLine(t *testing.T) {
	m, _, _ := seededModel()
	m.width = 100
	header := m.renderHeader()
	lines := strings.Split(header, "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single-line header")
	}
	if !strings.Contains(lines[0], "[next refresh in ") {
		t.Fatalf("expected bracketed refresh countdown on header line")
	}
	if lipgloss.Width(lines[0]) > m.width {
		t.Fatalf("header line exceeded width")
	}
}

func TestHeaderRetainsUTCTimestampAtNarrowWidth(t *testing.T) {
	m, _, _ := seededModel()
	m.width = 58
	header := m.renderHeader()
	lines := strings.Split(header, "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single-line header")
	}
	if !strings.Contains(lines[0], "utc 2026-02-26 15:00:00") {
		t.Fatalf("expected narrow header to retain utc timestamp, got: %q", lines[0])
	}
}

func TestViewShowsHelpAtBottom(t *testing.T) {
	m, _, _ := seededModel()
	m.width = 120
	m.height = 30
	out := m.View()
	lines := strings.Split(out, "\n")
	if len(lines) != m.height {
		t.Fatalf("expected %d lines, got %d", m.height, len(lines))
	}
	if !strings.Contains(lines[len(lines)-1], "q quit") {
		t.Fatalf("expected help on bottom row, got: %q", lines[len(lines)-1])
	}
}
