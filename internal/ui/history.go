package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ReunioOrg/reuneo/internal/lobby"
)

const (
	avatarCols = 8
	avatarRows = 4
)

// historyPageSize is how many rows fit in the current terminal.
func (m Model) historyPageSize() int {
	rows := (m.height - 5) / 2
	if rows < 3 {
		rows = 3
	}
	return rows
}

// renderHistory renders the interaction list with the selection cursor.
func (m Model) renderHistory() string {
	styles := m.theme.Styles()
	records := m.snapshot.History

	if !m.snapshot.HistoryLoaded {
		return styles.MutedText.Render("\n  Loading your history...")
	}
	if len(records) == 0 {
		return styles.MutedText.Render("\n  No interactions yet. They appear here after your first round.")
	}

	page := m.historyPageSize()
	start := m.selectedRow - page/2
	if start > len(records)-page {
		start = len(records) - page
	}
	if start < 0 {
		start = 0
	}
	end := start + page
	if end > len(records) {
		end = len(records)
	}

	var b strings.Builder
	b.WriteString("\n")
	for i := start; i < end; i++ {
		b.WriteString(m.renderHistoryRow(records[i], i == m.selectedRow))
		b.WriteString("\n")
	}

	if m.snapshot.HistoryHasMore {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("  %d of more. Press m to load more.", len(records))))
	} else {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("  %d interactions.", len(records))))
	}
	b.WriteString("\n")
	return b.String()
}

// renderHistoryRow renders one interaction as a two-line row.
func (m Model) renderHistoryRow(rec lobby.Interaction, selected bool) string {
	styles := m.theme.Styles()

	cursor := "  "
	nameStyle := styles.Text.Bold(true)
	if selected {
		cursor = styles.AccentText.Render("> ")
		nameStyle = styles.Selected.Bold(true)
	}

	first := cursor +
		m.avatarGlyph(rec.PairedWith.Username) + " " +
		nameStyle.Render(rec.DisplayName()) + "  " +
		styles.WarningText.Render(renderStars(rec.PartnerStarRating)) + "  " +
		m.renderContactBadges(rec)

	date := rec.LobbyDate
	if date == "" {
		date = rec.InteractionDate
	}
	second := "     " + styles.FaintText.Render(date)
	if rec.PartnerShowContact && len(contactLinks(rec)) > 0 {
		second += "  " + styles.InfoText.Render(strings.Join(contactLinks(rec), "  "))
	}

	return first + "\n" + second
}

// renderContactBadges shows both directions of contact sharing.
func (m Model) renderContactBadges(rec lobby.Interaction) string {
	styles := m.theme.Styles()
	var badges []string
	if rec.UserShowContact {
		badges = append(badges, styles.SuccessText.Render("shared"))
	} else {
		badges = append(badges, styles.FaintText.Render("private"))
	}
	if rec.PartnerShowContact {
		badges = append(badges, styles.InfoText.Render("theirs open"))
	}
	return strings.Join(badges, " ")
}

// avatarGlyph returns a one-cell avatar marker backed by the icon cache.
// Missing avatars and pending fetches fall back to a placeholder glyph.
func (m Model) avatarGlyph(username string) string {
	styles := m.theme.Styles()
	if m.icons == nil || username == "" {
		return styles.FaintText.Render("○")
	}
	entry, ok := m.icons.Lookup(username)
	if !ok {
		return styles.FaintText.Render("○")
	}
	if !entry.Found || len(entry.Data) == 0 {
		return styles.FaintText.Render("·")
	}
	return styles.AccentText.Render("●")
}

// renderStars draws a five-slot star gauge; unrated stays empty.
func renderStars(rating *int) string {
	if rating == nil {
		return strings.Repeat("·", 5)
	}
	n := *rating
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// contactLinks flattens the partner's shared social links.
func contactLinks(rec lobby.Interaction) []string {
	links := rec.SocialLinks
	if len(links) == 0 {
		links = rec.PairedWith.SocialLinks
	}
	if len(links) == 0 {
		return nil
	}
	out := make([]string, 0, len(links))
	for _, k := range sortedKeys(links) {
		out = append(out, k+": "+links[k])
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
