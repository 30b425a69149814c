// Package audio keeps local playback aligned with the server's round clock.
// The server reports only whole-second time-remaining values per poll, so
// alignment means bounded drift correction, not sample accuracy.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPlaybackBlocked marks playback refused by the platform (no player
// command, spawn failure). Callers use it to show the one-time manual
// enable-sound prompt; any other error is an ordinary failure.
var ErrPlaybackBlocked = errors.New("audio: playback blocked")

// TrackPhase is the synchronizer's playback phase.
type TrackPhase int

const (
	// TrackIdle means no audio is active or unlocked.
	TrackIdle TrackPhase = iota
	// TrackAmbient is the looping waiting-room track.
	TrackAmbient
	// TrackMain is the timed round track following the server clock.
	TrackMain
)

func (p TrackPhase) String() string {
	switch p {
	case TrackAmbient:
		return "ambient"
	case TrackMain:
		return "main"
	default:
		return "idle"
	}
}

const defaultDriftTolerance = 2 * time.Second

// Synchronizer owns the ambient and main players. Exactly one of them plays
// at a time; transitions fully quiesce the previous owner first.
type Synchronizer struct {
	mu        sync.Mutex
	ambient   Player
	main      Player
	cue       time.Duration // main-track position at which the round clock hits zero
	tolerance time.Duration
	phase     TrackPhase
	unlocked  bool
	log       zerolog.Logger
}

// NewSynchronizer builds a Synchronizer. cue is the main-track cue length:
// the track position that corresponds to zero round time remaining.
func NewSynchronizer(ambient, main Player, cue time.Duration, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		ambient:   ambient,
		main:      main,
		cue:       cue,
		tolerance: defaultDriftTolerance,
		phase:     TrackIdle,
		log:       log,
	}
}

// Phase returns the current playback phase.
func (s *Synchronizer) Phase() TrackPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// StartAmbient begins the looping waiting-room track.
func (s *Synchronizer) StartAmbient(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == TrackAmbient {
		return nil
	}
	_ = s.main.Stop()
	if err := s.ambient.Start(ctx, 0, true); err != nil {
		return fmt.Errorf("start ambient: %w", err)
	}
	s.phase = TrackAmbient
	s.log.Debug().Msg("ambient track started")
	return nil
}

// Unlock primes the main track with a brief start+stop while ambient plays,
// so the later automatic switchover does not need a fresh user action. It
// runs at most once per session and only from the ambient phase.
func (s *Synchronizer) Unlock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlocked || s.phase != TrackAmbient {
		return nil
	}
	if err := s.main.Start(ctx, 0, false); err != nil {
		return fmt.Errorf("unlock main: %w", err)
	}
	_ = s.main.Stop()
	s.unlocked = true
	s.log.Debug().Msg("main track unlocked")
	return nil
}

// SwitchToMain hands playback from ambient to the timed round track,
// positioned from the reported time remaining. The ambient player is fully
// quiesced before the main track starts.
func (s *Synchronizer) SwitchToMain(ctx context.Context, timeLeft time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.ambient.Stop()
	if err := s.main.Start(ctx, s.target(timeLeft), false); err != nil {
		s.phase = TrackIdle
		return fmt.Errorf("switch to main: %w", err)
	}
	s.phase = TrackMain
	s.log.Debug().Dur("time_left", timeLeft).Msg("switched to main track")
	return nil
}

// SyncRound realigns the main track with the server clock. Zero time
// remaining is never seeked: the round boundary is imminent and a seek would
// overshoot. Drift inside the tolerance is left alone.
func (s *Synchronizer) SyncRound(ctx context.Context, timeLeft time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != TrackMain || timeLeft <= 0 {
		return nil
	}
	target := s.target(timeLeft)
	pos, playing := s.main.Position()
	if playing {
		drift := pos - target
		if drift < 0 {
			drift = -drift
		}
		if drift <= s.tolerance {
			return nil
		}
		s.log.Debug().Dur("drift", drift).Dur("target", target).Msg("reseeking main track")
	}
	if err := s.main.Start(ctx, target, false); err != nil {
		return fmt.Errorf("seek main: %w", err)
	}
	return nil
}

// Release is terminal: stop both players and drop all playback state. A
// released synchronizer can be started again only from scratch.
func (s *Synchronizer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.ambient.Stop()
	_ = s.main.Stop()
	s.phase = TrackIdle
	s.unlocked = false
	s.log.Debug().Msg("audio released")
}

func (s *Synchronizer) target(timeLeft time.Duration) time.Duration {
	target := s.cue - timeLeft
	if target < 0 {
		return 0
	}
	return target
}
