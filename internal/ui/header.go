package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/state"
)

// renderHeader renders the top status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	if !m.snapshot.HasLobby && m.snapshot.Admin == nil {
		return m.renderConnectingHeader(styles)
	}

	sep := "  "
	parts := []string{
		styles.Logo.Render("reuneo"),
		styles.MutedText.Render("lobby") + " " + styles.Text.Render(m.lobbyCode),
		styles.PhaseStyle(m.phaseLabel()).Render(strings.ToUpper(m.phaseLabel())),
	}

	if m.snapshot.Phase == state.PhaseActive && m.snapshot.Lobby.RoundTimeLeft > 0 {
		parts = append(parts,
			styles.MutedText.Render("time")+" "+
				styles.AccentText.Render(formatClock(m.snapshot.Lobby.RoundTimeLeft)))
	}

	switch {
	case errors.Is(m.snapshot.LastError, lobby.ErrUnauthorized):
		// The session is gone; retrying cannot help.
		parts = append(parts, styles.DangerText.Render("SESSION EXPIRED, restart to sign in"))
	case m.snapshot.IsOffline():
		parts = append(parts, styles.DangerText.Render("OFFLINE"))
	case m.snapshot.LastError != nil:
		parts = append(parts, styles.WarningText.Render("retrying..."))
	}

	if !m.lastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render(m.lastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderConnectingHeader shows the pre-first-poll state.
func (m Model) renderConnectingHeader(styles Styles) string {
	if errors.Is(m.snapshot.LastError, lobby.ErrUnauthorized) {
		return styles.Header.Width(m.width).Render(
			styles.Logo.Render("reuneo") + "  " +
				styles.DangerText.Render("SESSION EXPIRED, restart to sign in"))
	}
	if m.snapshot.LastError != nil {
		return styles.Header.Width(m.width).Render(
			styles.Logo.Render("reuneo") + "  " +
				styles.DangerText.Render("CONNECTION FAILED") + "  " +
				styles.WarningText.Render("Retrying..."))
	}
	return styles.Header.Width(m.width).Render(
		styles.Logo.Render("reuneo") + "  " +
			styles.WarningText.Render("Connecting to lobby "+m.lobbyCode+"..."))
}

// renderCommandBar renders the second header line with key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()

	var hints []string
	add := func(key, label string) {
		hints = append(hints, styles.AccentText.Render(key)+" "+styles.MutedText.Render(label))
	}

	if m.admin {
		add("r", "refresh")
	} else {
		add("tab", "lobby/history")
		if m.currentView == ViewHistory {
			add("j/k", "move")
			add("1-5", "rate")
			add("c", "contact")
			if m.snapshot.HistoryHasMore {
				add("m", "more")
			}
		}
		add("t", "tags")
	}
	add("T", "theme")
	add("h", "help")
	add("q", "quit")

	return styles.Footer.Width(m.width).Render(strings.Join(hints, "  "))
}

// renderFooter renders toasts and the one-time sound prompt, newest last.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	var lines []string
	if m.snapshot.AudioBlocked && !m.soundPromptDismissed {
		lines = append(lines, styles.WarningText.Bold(true).Render(
			"Sound is blocked. Press s to enable, esc to dismiss."))
	}
	for _, t := range m.toasts {
		if t.danger {
			lines = append(lines, styles.DangerText.Render(t.text))
		} else {
			lines = append(lines, styles.InfoText.Render(t.text))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(m.width).Render(strings.Join(lines, "\n"))
}

// phaseLabel returns the server-facing phase word used for badge colors.
func (m Model) phaseLabel() string {
	if m.admin && m.snapshot.Admin != nil {
		return strings.ToLower(strings.TrimSpace(m.snapshot.Admin.LobbyState))
	}
	switch m.snapshot.Phase {
	case state.PhaseCheckin:
		return "checkin"
	case state.PhaseActive:
		return "active"
	case state.PhaseInterrim:
		return "interrim"
	case state.PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// formatClock renders whole seconds as M:SS.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
