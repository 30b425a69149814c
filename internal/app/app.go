package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ReunioOrg/reuneo/internal/audio"
	"github.com/ReunioOrg/reuneo/internal/config"
	"github.com/ReunioOrg/reuneo/internal/imgcache"
	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/logging"
	"github.com/ReunioOrg/reuneo/internal/mutate"
	"github.com/ReunioOrg/reuneo/internal/prefs"
	"github.com/ReunioOrg/reuneo/internal/state"
	"github.com/ReunioOrg/reuneo/internal/ui"
)

// Options configure the Reuneo application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/reuneo/prefs.toml
	LobbyCode  string // overrides the configured lobby code
	PollEvery  int    // seconds; zero uses the configured value
	Admin      bool   // organizer view instead of the attendee lobby

	Credentials lobby.Credentials
}

// Run boots the Reuneo TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	userPrefs := prefs.Load(opts.PrefsPath)

	lobbyCode := cfg.LobbyCode
	if opts.LobbyCode != "" {
		lobbyCode = opts.LobbyCode
	}
	if lobbyCode == "" {
		lobbyCode = userPrefs.LobbyCode
	}
	if lobbyCode == "" {
		return fmt.Errorf("no lobby code: pass -lobby or set lobby_code in the config")
	}

	client, err := lobby.NewClient(cfg.ServerURL, opts.Credentials)
	if err != nil {
		return fmt.Errorf("init lobby client: %w", err)
	}

	store := state.NewStore()

	sound := audio.NewSynchronizer(
		audio.NewExecPlayer(cfg.Audio.PlayerCommand, cfg.Audio.LoopFlag, cfg.Audio.AmbientTrack),
		audio.NewExecPlayer(cfg.Audio.PlayerCommand, cfg.Audio.LoopFlag, cfg.Audio.MainTrack),
		time.Duration(cfg.Audio.CueSeconds)*time.Second,
		log.With().Str("component", "audio").Logger(),
	)
	defer sound.Release()

	// Muted sound keeps the synchronizer alive for a later manual enable but
	// detaches it from the poller's automatic edges.
	pollerSound := sound
	if !userPrefs.SoundEnabled {
		pollerSound = nil
	}

	manager := mutate.NewManager(mutate.Options{
		Layer:  store,
		Write:  writeThrough(client),
		Clock:  clockwork.NewRealClock(),
		Logger: log.With().Str("component", "mutate").Logger(),
		Windows: map[string]time.Duration{
			state.FieldRating:      time.Duration(cfg.RatingDebounceMS) * time.Millisecond,
			state.FieldShowContact: time.Duration(cfg.ContactDebounceMS) * time.Millisecond,
			state.FieldTags:        time.Duration(cfg.TagsDebounceMS) * time.Millisecond,
		},
	})
	defer manager.Close()

	icons := imgcache.New(client.FetchIconBatch, log.With().Str("component", "imgcache").Logger())

	interval := time.Duration(cfg.PollSeconds) * time.Second
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}
	historyEvery := historyCadence(interval, time.Duration(cfg.HistoryPollSeconds)*time.Second)

	poller := NewPoller(PollerOptions{
		Store:        store,
		Client:       client,
		Sound:        pollerSound,
		Logger:       log.With().Str("component", "poller").Logger(),
		LobbyCode:    lobbyCode,
		Admin:        opts.Admin,
		Interval:     interval,
		HistoryEvery: historyEvery,
		HistoryLimit: cfg.HistoryPageSize,
	})
	poller.Start(ctx)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     store,
		Poller:    poller,
		Manager:   manager,
		Icons:     icons,
		Sound:     sound,
		PollTick:  time.Second,
		ThemeName: userPrefs.Theme,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		LobbyCode: lobbyCode,
		Admin:     opts.Admin,
		Logger:    log.With().Str("component", "ui").Logger(),
	})
}

// writeThrough maps a settled optimistic edit onto the matching API call.
// Interaction patches are keyed by partner username; the server resolves the
// record from that, so no lobby id travels with the patch.
func writeThrough(client *lobby.Client) mutate.WriteFunc {
	return func(ctx context.Context, record, field string, value any) error {
		if record == state.RecordProfile && field == state.FieldTags {
			return client.SetTags(ctx, value.(lobby.TagProfile))
		}

		patch := lobby.InteractionPatch{
			PairedWithUsername: usernameFromKey(record),
		}
		switch field {
		case state.FieldRating:
			rating := value.(int)
			patch.PartnerStarRating = &rating
		case state.FieldShowContact:
			show := value.(bool)
			patch.UserShowContact = &show
		default:
			return fmt.Errorf("unknown mutation field %q", field)
		}
		_, err := client.UpdateInteraction(ctx, patch)
		return err
	}
}

// historyCadence converts the configured history period into whole lobby
// ticks of the effective poll interval, so a -poll override keeps the
// history cadence in wall time rather than in configured ticks.
func historyCadence(interval, period time.Duration) int {
	if interval <= 0 {
		return 1
	}
	every := int(period / interval)
	if every < 1 {
		every = 1
	}
	return every
}

// usernameFromKey strips the reconciler key prefix back to a username.
func usernameFromKey(record string) string {
	const prefix = "user:"
	if len(record) > len(prefix) && record[:len(prefix)] == prefix {
		return record[len(prefix):]
	}
	return record
}
