package ui

import (
	"fmt"
	"strings"
)

// renderAdmin renders the organizer view: current round, the paired floor,
// and whoever is still waiting.
func (m Model) renderAdmin() string {
	styles := m.theme.Styles()
	admin := m.snapshot.Admin
	if admin == nil {
		return styles.MutedText.Render("\n  Waiting for the first organizer update...")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + styles.Text.Bold(true).Render(fmt.Sprintf("Round %d", admin.CurrentRound)))
	if admin.RoundTimeLeft > 0 {
		b.WriteString("  " + styles.AccentText.Render(formatClock(admin.RoundTimeLeft)))
	}
	b.WriteString("\n\n")

	b.WriteString("  " + styles.AccentText.Bold(true).Render(fmt.Sprintf("Paired (%d)", len(admin.PairedPlayers))))
	b.WriteString("\n")
	if len(admin.PairedPlayers) == 0 {
		b.WriteString(styles.FaintText.Render("    nobody paired yet"))
		b.WriteString("\n")
	}
	for i, pair := range admin.PairedPlayers {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("    %2d. ", i+1)))
		b.WriteString(styles.Text.Render(pair[0]))
		b.WriteString(styles.FaintText.Render(" x "))
		b.WriteString(styles.Text.Render(pair[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString("  " + styles.WarningText.Bold(true).Render(fmt.Sprintf("Unpaired (%d)", len(admin.UnpairedPlayers))))
	b.WriteString("\n")
	if len(admin.UnpairedPlayers) == 0 {
		b.WriteString(styles.FaintText.Render("    everyone is paired"))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.Text.Render("    " + strings.Join(admin.UnpairedPlayers, ", ")))
		b.WriteString("\n")
	}

	return b.String()
}
