package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ReunioOrg/reuneo/internal/state"
)

// countdownWindow is how long the round-start overlay stays up after the
// interrim to active edge.
const countdownWindow = 3 * time.Second

// renderLobby renders the attendee lobby for the current phase.
func (m Model) renderLobby() string {
	if !m.snapshot.HasLobby {
		return m.theme.Styles().MutedText.Render("\n  Waiting for the first lobby update...")
	}

	if overlay := m.renderCountdown(); overlay != "" {
		return overlay
	}

	switch m.snapshot.Phase {
	case state.PhaseCheckin:
		return m.renderCheckin()
	case state.PhaseActive:
		return m.renderActiveRound()
	case state.PhaseInterrim:
		return m.renderInterrim()
	case state.PhaseTerminated:
		return m.renderTerminated()
	default:
		return m.theme.Styles().MutedText.Render("\n  Lobby state unknown.")
	}
}

// renderCountdown shows a brief full-screen round-start overlay right after
// the pairing lands.
func (m Model) renderCountdown() string {
	if m.snapshot.Phase != state.PhaseActive || m.snapshot.TransitionAt.IsZero() {
		return ""
	}
	elapsed := time.Since(m.snapshot.TransitionAt)
	if elapsed >= countdownWindow {
		return ""
	}
	left := int(countdownWindow.Seconds()) - int(elapsed.Seconds())

	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Round starting"))
	b.WriteString("\n\n")
	b.WriteString(styles.WarningText.Bold(true).Render(fmt.Sprintf("   %d   ", left)))
	if opp := m.snapshot.Lobby.Opponent; opp != nil {
		b.WriteString("\n\n")
		b.WriteString(styles.Text.Render("Meet " + opp.Name))
		if m.snapshot.Lobby.TableNumber > 0 {
			b.WriteString(styles.MutedText.Render(fmt.Sprintf(" at table %d", m.snapshot.Lobby.TableNumber)))
		}
	}

	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
		styles.Modal.Render(b.String()))
}

func (m Model) renderCheckin() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("  You're checked in."))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("  Waiting for the organizer to start the first round."))
	b.WriteString("\n\n")
	b.WriteString(m.renderOwnTags(styles))
	return b.String()
}

func (m Model) renderActiveRound() string {
	styles := m.theme.Styles()
	resp := m.snapshot.Lobby

	var b strings.Builder
	b.WriteString("\n")

	// Round clock. A zero time-left report renders no timer at all, the
	// boundary is already imminent.
	if resp.RoundTimeLeft > 0 {
		b.WriteString("  " + styles.AccentText.Bold(true).Render(formatClock(resp.RoundTimeLeft)))
		b.WriteString("  " + m.renderTimeBar(resp.RoundTimeLeft, resp.RoundDuration))
		b.WriteString("\n\n")
	}

	if resp.Opponent != nil {
		card := strings.Builder{}
		card.WriteString(styles.Text.Bold(true).Render(resp.Opponent.Name))
		if resp.TableNumber > 0 {
			card.WriteString("\n")
			card.WriteString(styles.MutedText.Render(fmt.Sprintf("Table %d", resp.TableNumber)))
		}
		if m.snapshot.Partner != nil {
			if thumb := renderAvatarBase64(m.snapshot.Partner.ImageData, avatarCols, avatarRows); thumb != "" {
				card.WriteString("\n")
				card.WriteString(thumb)
			}
		}
		b.WriteString(indentBlock(styles.Card.Render(card.String()), 2))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.MutedText.Render("  You are not paired this round."))
		b.WriteString("\n")
	}

	if pair := m.snapshot.Match; pair != nil {
		banner := fmt.Sprintf("MATCH  you offer %q, they want it. They offer %q.", pair.PlayerTag, pair.OpponentTag)
		b.WriteString("\n")
		b.WriteString("  " + styles.SuccessText.Render(banner))
		b.WriteString("\n")
	}

	if len(resp.CustomTags) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("  Round topics: ") + styles.Text.Render(strings.Join(resp.CustomTags, ", ")))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderInterrim() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("  Round over."))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("  Hang tight while the next round is paired."))
	b.WriteString("\n\n")
	b.WriteString(m.renderOwnTags(styles))
	return b.String()
}

func (m Model) renderTerminated() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("  The event has ended."))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("  Press tab to review the people you met."))
	b.WriteString("\n")
	return b.String()
}

// renderOwnTags shows the attendee's current tag profile.
func (m Model) renderOwnTags(styles Styles) string {
	tags := m.snapshot.Tags
	var b strings.Builder
	b.WriteString(styles.FaintText.Render("  You offer:  "))
	b.WriteString(styles.Text.Render(joinOrDash(tags.TagsWork)))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("  You want:   "))
	b.WriteString(styles.Text.Render(joinOrDash(tags.DesiringTagsWork)))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("  Press t to edit your tags."))
	b.WriteString("\n")
	return b.String()
}

// renderTimeBar draws the remaining-time bar for the round.
func (m Model) renderTimeBar(timeLeft, duration int) string {
	styles := m.theme.Styles()
	width := m.width - 16
	if width < 10 {
		width = 10
	}
	if width > 48 {
		width = 48
	}
	if duration <= 0 || timeLeft > duration {
		duration = timeLeft
	}
	filled := 0
	if duration > 0 {
		filled = width * timeLeft / duration
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.InfoText.Render(bar)
}

func (m Model) contentHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// indentBlock prefixes every line of block with n spaces.
func indentBlock(block string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(block, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}
