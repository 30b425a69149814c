package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/state"
)

// tagEditor holds the tag overlay state: one input for offered tags, one for
// desired tags.
type tagEditor struct {
	active bool
	inputs [2]textinput.Model
	focus  int
}

// openTagEditor seeds the overlay from the composed snapshot, so a pending
// tag edit shows up in the editor too.
func (m *Model) openTagEditor() {
	offered := textinput.New()
	offered.Placeholder = "skills you offer, comma separated"
	offered.CharLimit = 200
	offered.SetValue(strings.Join(m.snapshot.Tags.TagsWork, ", "))
	offered.Focus()

	wanted := textinput.New()
	wanted.Placeholder = "skills you're looking for, comma separated"
	wanted.CharLimit = 200
	wanted.SetValue(strings.Join(m.snapshot.Tags.DesiringTagsWork, ", "))

	m.tagEditor = tagEditor{
		active: true,
		inputs: [2]textinput.Model{offered, wanted},
	}
}

// handleTagEditorKey processes keyboard input while the tag overlay is open.
func (m Model) handleTagEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.tagEditor.active = false
		return m, nil

	case "tab", "shift+tab", "up", "down":
		m.tagEditor.inputs[m.tagEditor.focus].Blur()
		m.tagEditor.focus = 1 - m.tagEditor.focus
		m.tagEditor.inputs[m.tagEditor.focus].Focus()
		return m, nil

	case "enter":
		profile := lobby.TagProfile{
			TagsWork:         parseTags(m.tagEditor.inputs[0].Value()),
			DesiringTagsWork: parseTags(m.tagEditor.inputs[1].Value()),
		}
		m.tagEditor.active = false
		if m.manager != nil {
			m.manager.Propose(state.RecordProfile, state.FieldTags, profile)
		}
		return m, fetchSnapshotCmd(m.store)
	}

	var cmd tea.Cmd
	m.tagEditor.inputs[m.tagEditor.focus], cmd = m.tagEditor.inputs[m.tagEditor.focus].Update(msg)
	return m, cmd
}

// renderTagEditor renders the tag overlay.
func (m Model) renderTagEditor() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Your tags"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("up to 5 each, extras are dropped"))
	b.WriteString("\n\n")

	b.WriteString(styles.AccentText.Render("You offer"))
	b.WriteString("\n")
	b.WriteString(m.tagEditor.inputs[0].View())
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("You want"))
	b.WriteString("\n")
	b.WriteString(m.tagEditor.inputs[1].View())
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter save · tab switch · esc cancel"))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Modal.Width(52).Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// parseTags splits a comma separated tag list, dropping blanks and
// duplicates and capping the result at the server's tag limit.
func parseTags(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, tag)
		if len(out) == lobby.MaxTags {
			break
		}
	}
	return out
}
