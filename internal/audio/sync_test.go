package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePlayer struct {
	mu       sync.Mutex
	starts   []time.Duration
	loops    []bool
	stops    int
	playing  bool
	position time.Duration
	startErr error
}

func (p *fakePlayer) Start(ctx context.Context, at time.Duration, loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.starts = append(p.starts, at)
	p.loops = append(p.loops, loop)
	p.playing = true
	p.position = at
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.playing = false
	return nil
}

func (p *fakePlayer) Position() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, p.playing
}

func (p *fakePlayer) startCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.starts)
}

func newTestSync(ambient, main *fakePlayer) *Synchronizer {
	return NewSynchronizer(ambient, main, 5*time.Minute, zerolog.Nop())
}

func TestStartAmbient_LoopsAndIsIdempotent(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)

	if err := s.StartAmbient(context.Background()); err != nil {
		t.Fatalf("StartAmbient returned error: %v", err)
	}
	if s.Phase() != TrackAmbient {
		t.Fatalf("phase = %v, want ambient", s.Phase())
	}
	if len(ambient.loops) != 1 || !ambient.loops[0] {
		t.Fatalf("ambient loops = %v, want one looping start", ambient.loops)
	}

	// Repeated ambient polls must not restart the track.
	if err := s.StartAmbient(context.Background()); err != nil {
		t.Fatalf("StartAmbient returned error: %v", err)
	}
	if ambient.startCount() != 1 {
		t.Fatalf("ambient starts = %d, want 1", ambient.startCount())
	}
}

func TestUnlock_PrimesMainOnceWhileAmbient(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)

	// Before ambient, unlock is a no-op.
	if err := s.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if main.startCount() != 0 {
		t.Fatalf("unlock primed main before ambient phase")
	}

	_ = s.StartAmbient(context.Background())
	if err := s.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if main.startCount() != 1 || main.stops != 1 {
		t.Fatalf("main starts/stops = %d/%d, want 1/1 (brief prime)", main.startCount(), main.stops)
	}

	_ = s.Unlock(context.Background())
	if main.startCount() != 1 {
		t.Fatalf("unlock primed main twice")
	}
}

func TestSwitchToMain_QuiescesAmbientAndSeeksToCue(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)
	_ = s.StartAmbient(context.Background())

	// 5m cue, 90s remaining: main starts at 3m30s.
	if err := s.SwitchToMain(context.Background(), 90*time.Second); err != nil {
		t.Fatalf("SwitchToMain returned error: %v", err)
	}
	if !ambientStopped(ambient) {
		t.Fatalf("ambient still playing after switchover")
	}
	if s.Phase() != TrackMain {
		t.Fatalf("phase = %v, want main", s.Phase())
	}
	if got := main.starts[len(main.starts)-1]; got != 3*time.Minute+30*time.Second {
		t.Fatalf("main start position = %v, want 3m30s", got)
	}
}

func TestSwitchToMain_BlockedSurfacesError(t *testing.T) {
	ambient := &fakePlayer{}
	main := &fakePlayer{startErr: ErrPlaybackBlocked}
	s := newTestSync(ambient, main)
	_ = s.StartAmbient(context.Background())

	err := s.SwitchToMain(context.Background(), time.Minute)
	if !errors.Is(err, ErrPlaybackBlocked) {
		t.Fatalf("error = %v, want ErrPlaybackBlocked reachable via errors.Is", err)
	}
	if s.Phase() != TrackIdle {
		t.Fatalf("phase = %v after blocked switchover, want idle", s.Phase())
	}
}

func TestSyncRound_SeeksOnlyPastTolerance(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)
	_ = s.SwitchToMain(context.Background(), 120*time.Second) // position 3m

	// Drift within tolerance: no reseek.
	main.mu.Lock()
	main.position = 3*time.Minute + time.Second
	main.mu.Unlock()
	if err := s.SyncRound(context.Background(), 119*time.Second); err != nil {
		t.Fatalf("SyncRound returned error: %v", err)
	}
	if main.startCount() != 1 {
		t.Fatalf("reseeked inside tolerance: %d starts", main.startCount())
	}

	// Large drift: reseek to cue − timeLeft.
	main.mu.Lock()
	main.position = time.Minute
	main.mu.Unlock()
	if err := s.SyncRound(context.Background(), 100*time.Second); err != nil {
		t.Fatalf("SyncRound returned error: %v", err)
	}
	if main.startCount() != 2 {
		t.Fatalf("no reseek past tolerance: %d starts", main.startCount())
	}
	if got := main.starts[1]; got != 5*time.Minute-100*time.Second {
		t.Fatalf("reseek position = %v, want cue − 100s", got)
	}
}

func TestSyncRound_SkipsZeroTimeLeftAndNonMainPhases(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)

	// checkin scenario: no audio active, zero time left, nothing happens.
	if err := s.SyncRound(context.Background(), 0); err != nil {
		t.Fatalf("SyncRound returned error: %v", err)
	}
	if main.startCount() != 0 {
		t.Fatalf("idle sync touched the main player")
	}

	_ = s.SwitchToMain(context.Background(), 60*time.Second)
	main.mu.Lock()
	main.position = 0 // wildly drifted
	main.mu.Unlock()

	// Zero remaining: never seek at the round boundary.
	if err := s.SyncRound(context.Background(), 0); err != nil {
		t.Fatalf("SyncRound returned error: %v", err)
	}
	if main.startCount() != 1 {
		t.Fatalf("seeked at timeLeft=0: %d starts", main.startCount())
	}
}

func TestRelease_IsTerminal(t *testing.T) {
	ambient, main := &fakePlayer{}, &fakePlayer{}
	s := newTestSync(ambient, main)
	_ = s.StartAmbient(context.Background())
	_ = s.Unlock(context.Background())
	_ = s.SwitchToMain(context.Background(), time.Minute)

	s.Release()

	if s.Phase() != TrackIdle {
		t.Fatalf("phase = %v after release, want idle", s.Phase())
	}
	if _, playing := main.Position(); playing {
		t.Fatalf("main still playing after release")
	}
	if _, playing := ambient.Position(); playing {
		t.Fatalf("ambient still playing after release")
	}

	// Unlock state is reset too: a fresh ambient phase primes again.
	_ = s.StartAmbient(context.Background())
	before := main.startCount()
	_ = s.Unlock(context.Background())
	if main.startCount() != before+1 {
		t.Fatalf("unlock did not re-prime after release")
	}
}

func ambientStopped(p *fakePlayer) bool {
	_, playing := p.Position()
	return !playing
}
