// Package ui provides the Bubble Tea terminal interface for Reuneo.
package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ReunioOrg/reuneo/internal/audio"
	"github.com/ReunioOrg/reuneo/internal/imgcache"
	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/mutate"
	"github.com/ReunioOrg/reuneo/internal/prefs"
	"github.com/ReunioOrg/reuneo/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLobby View = iota
	ViewHistory
	ViewAdmin
)

// Poller is the background fetch loop the UI steers. Polling pauses while
// the terminal is unfocused and resumes with an immediate refresh.
type Poller interface {
	SetVisible(visible bool)
	RefreshNow()
	LoadMore() bool
	Notices() <-chan string
}

// Mutator accepts optimistic edits and reports how they settled.
type Mutator interface {
	Propose(record, field string, value any)
	Acks() <-chan mutate.Ack
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Poller    Poller
	Manager   Mutator
	Icons     *imgcache.Cache
	Sound     *audio.Synchronizer
	PollTick  time.Duration
	ThemeName string
	Prefs     prefs.Prefs
	PrefsPath string
	LobbyCode string
	Admin     bool
	Logger    zerolog.Logger
}

// toast is one transient footer notification.
type toast struct {
	text    string
	danger  bool
	expires time.Time
}

const toastLifetime = 4 * time.Second

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	poller    Poller
	manager   Mutator
	icons     *imgcache.Cache
	sound     *audio.Synchronizer
	prefs     prefs.Prefs
	prefsPath string
	lobbyCode string
	admin     bool
	log       zerolog.Logger
	pollTick  time.Duration

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// History state
	selectedRow int

	// Overlays
	showHelp  bool
	tagEditor tagEditor

	// One-time sound prompt: stays down once dismissed or retried.
	soundPromptDismissed bool

	toasts []toast
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = opts.Prefs.Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	view := ViewLobby
	if opts.Admin {
		view = ViewAdmin
	}

	return Model{
		ctx:         ctx,
		store:       opts.Store,
		poller:      opts.Poller,
		manager:     opts.Manager,
		icons:       opts.Icons,
		sound:       opts.Sound,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		lobbyCode:   opts.LobbyCode,
		admin:       opts.Admin,
		log:         opts.Logger,
		pollTick:    pollTick,
		theme:       GetTheme(themeName),
		currentView: view,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.manager != nil {
		cmds = append(cmds, waitAckCmd(m.manager.Acks()))
	}
	if m.poller != nil {
		cmds = append(cmds, waitNoticeCmd(m.poller.Notices()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.FocusMsg:
		// Terminal regained focus: resume polling and refresh at once.
		if m.poller != nil {
			m.poller.SetVisible(true)
			m.poller.RefreshNow()
		}
		return m, fetchSnapshotCmd(m.store)

	case tea.BlurMsg:
		if m.poller != nil {
			m.poller.SetVisible(false)
		}
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, m.prefetchAvatarsCmd()

	case ackMsg:
		m.pushToast(ackText(mutate.Ack(msg)), mutate.Ack(msg).Outcome == mutate.OutcomeRolledBack)
		return m, tea.Batch(waitAckCmd(m.manager.Acks()), fetchSnapshotCmd(m.store))

	case acksClosedMsg:
		return m, nil

	case noticeMsg:
		m.pushToast(string(msg), false)
		return m, tea.Batch(waitNoticeCmd(m.poller.Notices()), fetchSnapshotCmd(m.store))

	case soundRetriedMsg:
		if msg.err != nil {
			m.pushToast("Sound is still unavailable", true)
		} else {
			m.pushToast("Sound enabled", false)
		}
		return m, fetchSnapshotCmd(m.store)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}
	if m.tagEditor.active {
		return m.renderTagEditor()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help.
		m.showHelp = false
		return m, nil
	}
	if m.tagEditor.active {
		return m.handleTagEditorKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, m.prefs)
		}
		return m, nil

	case "tab":
		if !m.admin {
			if m.currentView == ViewLobby {
				m.currentView = ViewHistory
			} else {
				m.currentView = ViewLobby
			}
		}
		return m, m.prefetchAvatarsCmd()

	case "r":
		if m.poller != nil {
			m.poller.RefreshNow()
		}
		return m, fetchSnapshotCmd(m.store)

	case "t":
		if m.admin {
			return m, nil
		}
		m.openTagEditor()
		return m, nil

	case "s":
		if m.snapshot.AudioBlocked && !m.soundPromptDismissed {
			m.soundPromptDismissed = true
			return m, m.enableSoundCmd()
		}
		return m, nil

	case "esc":
		if m.snapshot.AudioBlocked && !m.soundPromptDismissed {
			m.soundPromptDismissed = true
			return m, nil
		}
		if !m.admin {
			m.currentView = ViewLobby
		}
		return m, nil
	}

	if m.currentView == ViewHistory {
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

// handleHistoryKey processes keyboard input for the history view.
func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	records := m.snapshot.History
	count := len(records)

	switch msg.String() {
	case "j", "down":
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
		return m, m.prefetchAvatarsCmd()
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, nil
	case "g", "home":
		m.selectedRow = 0
		return m, nil
	case "G", "end":
		if count > 0 {
			m.selectedRow = count - 1
		}
		return m, m.prefetchAvatarsCmd()
	case "m":
		if m.poller != nil && m.poller.LoadMore() {
			m.pushToast("Loading more history...", false)
		}
		return m, nil
	case "c":
		return m.toggleContact()
	case "1", "2", "3", "4", "5":
		return m.rateSelected(int(msg.String()[0] - '0'))
	}

	return m, nil
}

// rateSelected proposes a star rating for the selected interaction.
func (m Model) rateSelected(stars int) (tea.Model, tea.Cmd) {
	rec, ok := m.selectedRecord()
	if !ok || m.manager == nil {
		return m, nil
	}
	key := rec.Key()
	if key == "" {
		// No stable identity to patch against.
		return m, nil
	}
	m.manager.Propose(key, state.FieldRating, stars)
	return m, fetchSnapshotCmd(m.store)
}

// toggleContact proposes flipping contact sharing for the selected interaction.
func (m Model) toggleContact() (tea.Model, tea.Cmd) {
	rec, ok := m.selectedRecord()
	if !ok || m.manager == nil {
		return m, nil
	}
	key := rec.Key()
	if key == "" {
		return m, nil
	}
	// The composed snapshot already reflects any pending override.
	m.manager.Propose(key, state.FieldShowContact, !rec.UserShowContact)
	return m, fetchSnapshotCmd(m.store)
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.expireToasts()

	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) clampSelection() {
	if count := len(m.snapshot.History); m.selectedRow >= count {
		if count == 0 {
			m.selectedRow = 0
		} else {
			m.selectedRow = count - 1
		}
	}
}

func (m *Model) pushToast(text string, danger bool) {
	if strings.TrimSpace(text) == "" {
		return
	}
	m.toasts = append(m.toasts, toast{
		text:    text,
		danger:  danger,
		expires: time.Now().Add(toastLifetime),
	})
	if len(m.toasts) > 3 {
		m.toasts = m.toasts[len(m.toasts)-3:]
	}
}

func (m *Model) expireToasts() {
	now := time.Now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.expires.After(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())

	if footer := m.renderFooter(); footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLobby:
		return m.renderLobby()
	case ViewHistory:
		return m.renderHistory()
	case ViewAdmin:
		return m.renderAdmin()
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type ackMsg mutate.Ack

type acksClosedMsg struct{}

type noticeMsg string

type soundRetriedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitAckCmd(acks <-chan mutate.Ack) tea.Cmd {
	return func() tea.Msg {
		a, ok := <-acks
		if !ok {
			return acksClosedMsg{}
		}
		return ackMsg(a)
	}
}

func waitNoticeCmd(notices <-chan string) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-notices)
	}
}

// prefetchAvatarsCmd warms the icon cache ahead of the history cursor.
func (m Model) prefetchAvatarsCmd() tea.Cmd {
	if m.icons == nil || len(m.snapshot.History) == 0 {
		return nil
	}
	usernames := make([]string, 0, len(m.snapshot.History))
	for _, rec := range m.snapshot.History {
		usernames = append(usernames, rec.PairedWith.Username)
	}
	visibleEnd := m.selectedRow + m.historyPageSize()
	ctx := m.ctx
	icons := m.icons
	return func() tea.Msg {
		icons.EnsureAhead(ctx, usernames, visibleEnd, imgcache.DefaultLookahead)
		return nil
	}
}

// enableSoundCmd retries playback after the user's explicit gesture.
func (m Model) enableSoundCmd() tea.Cmd {
	if m.sound == nil || m.store == nil {
		return nil
	}
	snap := m.snapshot
	sound := m.sound
	store := m.store
	ctx := m.ctx
	return func() tea.Msg {
		store.SetAudioBlocked(false)
		var err error
		if snap.Phase == state.PhaseActive {
			timeLeft := time.Duration(snap.Lobby.RoundTimeLeft) * time.Second
			err = sound.SwitchToMain(ctx, timeLeft)
		} else {
			err = sound.StartAmbient(ctx)
		}
		if err != nil {
			store.SetAudioBlocked(true)
		}
		return soundRetriedMsg{err: err}
	}
}

func (m Model) selectedRecord() (lobby.Interaction, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.History) {
		return lobby.Interaction{}, false
	}
	return m.snapshot.History[m.selectedRow], true
}

func ackText(a mutate.Ack) string {
	switch {
	case a.Outcome == mutate.OutcomeSaved && a.Field == state.FieldTags:
		return "Tags saved"
	case a.Outcome == mutate.OutcomeSaved:
		return "Saved"
	case a.Field == state.FieldTags:
		return "Tags could not be saved"
	default:
		return "Change rejected, reverted"
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}
