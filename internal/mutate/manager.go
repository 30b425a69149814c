// Package mutate applies user edits optimistically and writes them through
// to the server, one debounced request per edited field.
package mutate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Layer is the value store the manager edits against. Committed values and
// optimistic overrides are kept in disjoint layers and composed by the
// store's readers, so a background merge can never clobber a pending edit
// and rolling back is just dropping the override.
type Layer interface {
	SetOverride(record, field string, value any)
	ClearOverride(record, field string)
	Commit(record, field string, value any)
}

// WriteFunc performs the write-through request for one settled edit. The
// context is cancelled when a newer edit supersedes this one.
type WriteFunc func(ctx context.Context, record, field string, value any) error

// Outcome says how an edit settled.
type Outcome int

const (
	// OutcomeSaved means the write-through succeeded and the optimistic
	// value is now authoritative.
	OutcomeSaved Outcome = iota
	// OutcomeRolledBack means the write failed and local state reverted to
	// the committed value.
	OutcomeRolledBack
)

// Ack is the user-visible settle notification. Superseded edits never
// produce one.
type Ack struct {
	Record  string
	Field   string
	Outcome Outcome
	Err     error
}

// Key identifies one pending edit. At most one edit per key is live.
type Key struct {
	Record string
	Field  string
}

type pendingEdit struct {
	timer  clockwork.Timer
	cancel context.CancelFunc
	gen    uint64
}

const defaultWindow = 400 * time.Millisecond

// Options configure a Manager.
type Options struct {
	Layer   Layer
	Write   WriteFunc
	Clock   clockwork.Clock
	Logger  zerolog.Logger
	Windows map[string]time.Duration // debounce window per field; defaultWindow otherwise
}

// Manager coordinates optimistic edits: apply locally at once, coalesce
// bursts into a single write, roll back on rejection.
type Manager struct {
	mu      sync.Mutex
	layer   Layer
	write   WriteFunc
	clock   clockwork.Clock
	log     zerolog.Logger
	windows map[string]time.Duration
	pending map[Key]*pendingEdit
	acks    chan Ack
	closed  bool
}

// NewManager builds a Manager. A nil clock falls back to the real one.
func NewManager(opts Options) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		layer:   opts.Layer,
		write:   opts.Write,
		clock:   clock,
		log:     opts.Logger,
		windows: opts.Windows,
		pending: make(map[Key]*pendingEdit),
		acks:    make(chan Ack, 16),
	}
}

// Acks exposes settle notifications for the UI to drain.
func (m *Manager) Acks() <-chan Ack {
	return m.acks
}

// Propose applies value for (record, field) immediately and schedules the
// debounced write-through. A newer Propose for the same key supersedes the
// older one: its timer is stopped and any in-flight request is cancelled,
// silently.
func (m *Manager) Propose(record, field string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	key := Key{Record: record, Field: field}
	p, exists := m.pending[key]
	if !exists {
		p = &pendingEdit{}
		m.pending[key] = p
	} else {
		if p.timer != nil {
			p.timer.Stop()
		}
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
	}
	p.gen++
	gen := p.gen

	m.layer.SetOverride(record, field, value)

	p.timer = m.clock.AfterFunc(m.window(field), func() {
		m.fire(key, gen, value)
	})
}

func (m *Manager) fire(key Key, gen uint64, value any) {
	m.mu.Lock()
	p, ok := m.pending[key]
	if !ok || p.gen != gen || m.closed {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	m.mu.Unlock()

	err := m.write(ctx, key.Record, key.Field, value)
	cancel()
	m.settle(key, gen, value, err)
}

func (m *Manager) settle(key Key, gen uint64, value any, err error) {
	m.mu.Lock()
	p, ok := m.pending[key]
	if !ok || p.gen != gen || m.closed {
		// A newer edit superseded this one while it was in flight.
		m.mu.Unlock()
		return
	}
	delete(m.pending, key)

	switch {
	case err == nil:
		m.layer.Commit(key.Record, key.Field, value)
		m.mu.Unlock()
		m.log.Debug().Str("record", key.Record).Str("field", key.Field).Msg("edit saved")
		m.ack(Ack{Record: key.Record, Field: key.Field, Outcome: OutcomeSaved})
	case errors.Is(err, context.Canceled):
		// Cancellation is silent: a newer request is already on its way.
		m.mu.Unlock()
	default:
		m.layer.ClearOverride(key.Record, key.Field)
		m.mu.Unlock()
		m.log.Warn().Err(err).Str("record", key.Record).Str("field", key.Field).Msg("edit rolled back")
		m.ack(Ack{Record: key.Record, Field: key.Field, Outcome: OutcomeRolledBack, Err: err})
	}
}

func (m *Manager) ack(a Ack) {
	select {
	case m.acks <- a:
	default:
		// UI fell behind; acks are transient notifications, drop the oldest
		// behaviorally by dropping this one.
	}
}

// Close cancels every outstanding timer and in-flight request and drops all
// overrides. No acks are emitted; teardown is silent like supersession.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for key, p := range m.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		if p.cancel != nil {
			p.cancel()
		}
		m.layer.ClearOverride(key.Record, key.Field)
		delete(m.pending, key)
	}
	close(m.acks)
}

func (m *Manager) window(field string) time.Duration {
	if d, ok := m.windows[field]; ok && d > 0 {
		return d
	}
	return defaultWindow
}
