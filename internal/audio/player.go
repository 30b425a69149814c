package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Player is a playback backend for a single track. Start replaces any
// current playback of the same player, so seeking is expressed as a restart
// at the target position.
type Player interface {
	Start(ctx context.Context, at time.Duration, loop bool) error
	Stop() error
	Position() (time.Duration, bool)
}

// ExecPlayer plays a file by spawning an external player command. The
// command template substitutes {file}, {pos} (whole seconds) and {loop}
// (expanded to loopFlag or dropped), e.g.
//
//	mpv --no-video --really-quiet {loop} --start={pos} {file}
type ExecPlayer struct {
	mu       sync.Mutex
	template string
	loopFlag string
	file     string

	cmd       *exec.Cmd
	cancel    context.CancelFunc
	startedAt time.Time
	offset    time.Duration
}

// NewExecPlayer builds an ExecPlayer for one track file. An empty template
// or file yields a player that reports playback as blocked.
func NewExecPlayer(template, loopFlag, file string) *ExecPlayer {
	return &ExecPlayer{template: template, loopFlag: loopFlag, file: file}
}

// Start spawns the player at the given position, replacing any current
// process. The spawned process is detached from ctx only by Stop.
func (p *ExecPlayer) Start(ctx context.Context, at time.Duration, loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.TrimSpace(p.template) == "" || strings.TrimSpace(p.file) == "" {
		return fmt.Errorf("no player command configured: %w", ErrPlaybackBlocked)
	}

	p.stopLocked()

	args := p.expandArgs(at, loop)
	if len(args) == 0 {
		return fmt.Errorf("player command empty after expansion: %w", ErrPlaybackBlocked)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("spawn player: %w: %w", err, ErrPlaybackBlocked)
	}
	// Reap the process whenever it exits so Stop never leaves a zombie.
	go func() { _ = cmd.Wait() }()

	_ = ctx // spawn is immediate; lifetime is owned by Stop
	p.cmd = cmd
	p.cancel = cancel
	p.startedAt = time.Now()
	p.offset = at
	return nil
}

// Stop terminates playback and releases the process. Safe when idle.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Position reports the current playback position derived from wall time.
func (p *ExecPlayer) Position() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return 0, false
	}
	return p.offset + time.Since(p.startedAt), true
}

func (p *ExecPlayer) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.cmd = nil
	p.offset = 0
	p.startedAt = time.Time{}
}

func (p *ExecPlayer) expandArgs(at time.Duration, loop bool) []string {
	fields := strings.Fields(p.template)
	args := make([]string, 0, len(fields))
	for _, f := range fields {
		switch {
		case f == "{loop}":
			if loop && p.loopFlag != "" {
				args = append(args, p.loopFlag)
			}
		case strings.Contains(f, "{pos}"):
			args = append(args, strings.ReplaceAll(f, "{pos}", strconv.Itoa(int(at.Seconds()))))
		case strings.Contains(f, "{file}"):
			args = append(args, strings.ReplaceAll(f, "{file}", p.file))
		default:
			args = append(args, f)
		}
	}
	return args
}
