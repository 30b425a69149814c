package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields Reuneo reads from its config file. Credentials
// are never stored here; they come from the environment.
type Config struct {
	ServerURL string
	LobbyCode string

	PollSeconds        int
	HistoryPollSeconds int
	HistoryPageSize    int

	RatingDebounceMS  int
	ContactDebounceMS int
	TagsDebounceMS    int

	LogPath  string
	LogLevel string

	Audio AudioConfig
}

// AudioConfig configures the external player used for round audio.
type AudioConfig struct {
	PlayerCommand string
	LoopFlag      string
	AmbientTrack  string
	MainTrack     string
	CueSeconds    int
}

const (
	defaultConfigPath = "~/.config/reuneo/config.toml"
	defaultServerURL  = "https://lobby.reuneo.app"

	defaultPollSeconds        = 2
	defaultHistoryPollSeconds = 15
	defaultHistoryPageSize    = 20

	defaultRatingDebounceMS  = 300
	defaultContactDebounceMS = 400
	defaultTagsDebounceMS    = 500

	defaultCueSeconds = 300
	defaultLoopFlag   = "--loop"
)

// Load locates and parses the config file, falling back to defaults when it
// is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL          string `toml:"server_url"`
		LobbyCode          string `toml:"lobby_code"`
		PollSeconds        int    `toml:"poll_seconds"`
		HistoryPollSeconds int    `toml:"history_poll_seconds"`
		HistoryPageSize    int    `toml:"history_page_size"`
		RatingDebounceMS   int    `toml:"rating_debounce_ms"`
		ContactDebounceMS  int    `toml:"contact_debounce_ms"`
		TagsDebounceMS     int    `toml:"tags_debounce_ms"`
		LogPath            string `toml:"log_path"`
		LogLevel           string `toml:"log_level"`
		Audio              struct {
			PlayerCommand string `toml:"player_command"`
			LoopFlag      string `toml:"loop_flag"`
			AmbientTrack  string `toml:"ambient_track"`
			MainTrack     string `toml:"main_track"`
			CueSeconds    int    `toml:"cue_seconds"`
		} `toml:"audio"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	cfg.LobbyCode = strings.TrimSpace(raw.LobbyCode)
	if raw.PollSeconds > 0 {
		cfg.PollSeconds = raw.PollSeconds
	}
	if raw.HistoryPollSeconds > 0 {
		cfg.HistoryPollSeconds = raw.HistoryPollSeconds
	}
	if raw.HistoryPageSize > 0 {
		cfg.HistoryPageSize = raw.HistoryPageSize
	}
	if raw.RatingDebounceMS > 0 {
		cfg.RatingDebounceMS = raw.RatingDebounceMS
	}
	if raw.ContactDebounceMS > 0 {
		cfg.ContactDebounceMS = raw.ContactDebounceMS
	}
	if raw.TagsDebounceMS > 0 {
		cfg.TagsDebounceMS = raw.TagsDebounceMS
	}
	cfg.LogPath = strings.TrimSpace(raw.LogPath)
	cfg.LogLevel = strings.TrimSpace(raw.LogLevel)

	cfg.Audio.PlayerCommand = strings.TrimSpace(raw.Audio.PlayerCommand)
	if v := strings.TrimSpace(raw.Audio.LoopFlag); v != "" {
		cfg.Audio.LoopFlag = v
	}
	cfg.Audio.AmbientTrack = mustExpand(strings.TrimSpace(raw.Audio.AmbientTrack))
	cfg.Audio.MainTrack = mustExpand(strings.TrimSpace(raw.Audio.MainTrack))
	if raw.Audio.CueSeconds > 0 {
		cfg.Audio.CueSeconds = raw.Audio.CueSeconds
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		ServerURL:          defaultServerURL,
		PollSeconds:        defaultPollSeconds,
		HistoryPollSeconds: defaultHistoryPollSeconds,
		HistoryPageSize:    defaultHistoryPageSize,
		RatingDebounceMS:   defaultRatingDebounceMS,
		ContactDebounceMS:  defaultContactDebounceMS,
		TagsDebounceMS:     defaultTagsDebounceMS,
		Audio: AudioConfig{
			LoopFlag:   defaultLoopFlag,
			CueSeconds: defaultCueSeconds,
		},
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
