package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ReunioOrg/reuneo/internal/audio"
	"github.com/ReunioOrg/reuneo/internal/history"
	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/state"
)

const defaultPollInterval = 2 * time.Second

// Notice is a transient user-facing message produced by background polls.
// It aliases string so channel consumers need no dependency on this package.
type Notice = string

// Poller drives the lobby and history fetch cycles at a fixed cadence and
// folds results into the store. Each resource has its own Guard, so a slow
// response delays only its own resource and never stacks requests.
type Poller struct {
	store     *state.Store
	client    lobby.Fetcher
	sound     *audio.Synchronizer
	log       zerolog.Logger
	lobbyCode string
	admin     bool

	interval     time.Duration
	historyEvery int
	historyLimit int

	lobbyGuard   Guard
	historyGuard Guard
	partnerGuard Guard

	// unauthorized latches when the server rejects the session. A dead
	// session cannot come back by retrying, so the loop stops issuing
	// requests and the store keeps the error for the UI to surface.
	unauthorized atomic.Bool

	ctx     context.Context
	kick    chan struct{}
	notices chan Notice
}

// PollerOptions configure a Poller.
type PollerOptions struct {
	Store     *state.Store
	Client    lobby.Fetcher
	Sound     *audio.Synchronizer
	Logger    zerolog.Logger
	LobbyCode string
	Admin     bool

	Interval     time.Duration
	HistoryEvery int // lobby ticks per history poll
	HistoryLimit int
}

// NewPoller builds a Poller.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	historyEvery := opts.HistoryEvery
	if historyEvery <= 0 {
		historyEvery = 8
	}
	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Poller{
		store:        opts.Store,
		client:       opts.Client,
		sound:        opts.Sound,
		log:          opts.Logger,
		lobbyCode:    opts.LobbyCode,
		admin:        opts.Admin,
		interval:     interval,
		historyEvery: historyEvery,
		historyLimit: historyLimit,
		kick:         make(chan struct{}, 1),
		notices:      make(chan Notice, 8),
	}
}

// Notices exposes transient poll notifications for the UI to drain.
func (p *Poller) Notices() <-chan Notice {
	return p.notices
}

// Start launches the background polling loop. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	p.ctx = ctx
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		tick := 0
		for {
			p.refresh(tick)
			if p.unauthorized.Load() {
				return
			}
			tick++
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-p.kick:
			}
		}
	}()
}

// SetVisible pauses or resumes polling with terminal visibility. Regaining
// visibility kicks an immediate refresh rather than waiting out the tick.
func (p *Poller) SetVisible(visible bool) {
	p.lobbyGuard.SetVisible(visible)
	p.historyGuard.SetVisible(visible)
	p.partnerGuard.SetVisible(visible)
	if visible {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// RefreshNow forces a lobby poll on the next loop iteration.
func (p *Poller) RefreshNow() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// LoadMore fetches the next history page and appends it. It reports whether
// a fetch was started; false means no more pages or one is already running.
func (p *Poller) LoadMore() bool {
	if p.unauthorized.Load() {
		return false
	}
	snap := p.store.Snapshot()
	if !snap.HistoryLoaded || !snap.HistoryHasMore {
		return false
	}
	offset := snap.HistoryNextOffset
	return p.historyGuard.Poll(func() {
		page, err := p.client.FetchInteractions(p.ctx, offset, p.historyLimit)
		if err != nil {
			p.store.RecordError(err)
			if errors.Is(err, lobby.ErrUnauthorized) {
				p.unauthorized.Store(true)
			}
			p.log.Warn().Err(err).Int("offset", offset).Msg("history page fetch failed")
			return
		}
		res := history.Reconcile(p.store.History(), page.Interactions, history.ModeAppend)
		p.store.SetHistory(res.List, page.HasMore, page.NextOffset)
	})
}

func (p *Poller) refresh(tick int) {
	if p.unauthorized.Load() {
		return
	}
	if p.admin {
		p.lobbyGuard.Poll(p.refreshAdmin)
		return
	}
	p.lobbyGuard.Poll(p.refreshLobby)
	if tick%p.historyEvery == 0 {
		p.historyGuard.Poll(p.refreshHistory)
	}
}

func (p *Poller) refreshAdmin() {
	resp, err := p.client.FetchAdminState(p.ctx, p.lobbyCode)
	p.store.ApplyAdmin(resp, err)
	if errors.Is(err, lobby.ErrUnauthorized) {
		p.unauthorized.Store(true)
		p.log.Warn().Err(err).Msg("session rejected, polling stopped")
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("admin poll failed")
	}
}

func (p *Poller) refreshLobby() {
	resp, err := p.client.FetchState(p.ctx, p.lobbyCode)
	res := p.store.ApplyLobby(resp, err)
	if errors.Is(err, lobby.ErrUnauthorized) {
		p.unauthorized.Store(true)
		p.log.Warn().Err(err).Msg("session rejected, polling stopped")
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("lobby poll failed")
		return
	}

	p.reactToTransition(res, resp)

	if res.OpponentChanged {
		p.partnerGuard.Poll(p.refreshPartner)
	}
}

// reactToTransition runs the audio edge effects for one applied poll. Edge
// effects fire only when the phase actually changed; the per-poll round
// sync runs on every active report.
func (p *Poller) reactToTransition(res state.PollResult, resp *lobby.StateResponse) {
	if p.sound == nil {
		return
	}
	timeLeft := time.Duration(resp.RoundTimeLeft) * time.Second

	if res.Transition.Changed() {
		switch res.Transition.To {
		case state.PhaseCheckin, state.PhaseInterrim:
			if err := p.sound.StartAmbient(p.ctx); err != nil {
				p.reportAudio(err)
			} else if err := p.sound.Unlock(p.ctx); err != nil {
				p.log.Debug().Err(err).Msg("main track pre-unlock failed")
			}
		case state.PhaseActive:
			if err := p.sound.SwitchToMain(p.ctx, timeLeft); err != nil {
				p.reportAudio(err)
			}
		case state.PhaseTerminated:
			p.sound.Release()
		}
	}

	if res.Transition.To == state.PhaseActive {
		if err := p.sound.SyncRound(p.ctx, timeLeft); err != nil {
			p.log.Warn().Err(err).Msg("round audio sync failed")
		}
	}
}

func (p *Poller) reportAudio(err error) {
	if errors.Is(err, audio.ErrPlaybackBlocked) {
		p.store.SetAudioBlocked(true)
		p.log.Info().Err(err).Msg("autonomous playback blocked")
		return
	}
	p.log.Warn().Err(err).Msg("audio transition failed")
}

func (p *Poller) refreshPartner() {
	profile, err := p.client.FetchPartnerProfile(p.ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("partner profile fetch failed")
		return
	}
	p.store.SetPartner(profile)
}

func (p *Poller) refreshHistory() {
	page, err := p.client.FetchInteractions(p.ctx, 0, p.historyLimit)
	if err != nil {
		p.store.RecordError(err)
		if errors.Is(err, lobby.ErrUnauthorized) {
			p.unauthorized.Store(true)
			p.log.Warn().Err(err).Msg("session rejected, polling stopped")
			return
		}
		p.log.Warn().Err(err).Msg("history poll failed")
		return
	}

	snap := p.store.Snapshot()
	if !snap.HistoryLoaded {
		res := history.Reconcile(nil, page.Interactions, history.ModeReplace)
		p.store.SetHistory(res.List, page.HasMore, page.NextOffset)
		return
	}

	res := history.Reconcile(p.store.History(), page.Interactions, history.ModeMerge)
	p.store.SetHistoryList(res.List)
	if res.HasNew {
		p.notify("New interaction in your history")
	} else if res.HasUpdated {
		p.notify("History updated")
	}
}

func (p *Poller) notify(msg string) {
	select {
	case p.notices <- Notice(msg):
	default:
	}
}
