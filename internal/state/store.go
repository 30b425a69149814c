package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/ReunioOrg/reuneo/internal/lobby"
	"github.com/ReunioOrg/reuneo/internal/match"
)

// Override field names. The record key for interaction fields is the
// interaction's stable key; the tag profile lives under RecordProfile.
const (
	FieldRating      = "partner_star_rating"
	FieldShowContact = "user_show_contact"
	FieldTags        = "tags"

	RecordProfile = "profile"
)

// Snapshot is the composed view handed to the UI: the committed replica with
// any optimistic overrides already applied.
type Snapshot struct {
	Lobby    lobby.StateResponse
	HasLobby bool

	Phase        Phase
	TransitionAt time.Time

	// Match is set on the interrim→active edge when the pairing matched
	// bidirectionally, and cleared when the machine leaves active.
	Match *match.Pair

	Partner *lobby.PartnerProfile
	Admin   *lobby.AdminStateResponse

	History           []lobby.Interaction
	HistoryLoaded     bool
	HistoryHasMore    bool
	HistoryNextOffset int

	Tags lobby.TagProfile

	AudioBlocked bool

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// PollResult reports what one applied lobby poll changed.
type PollResult struct {
	Transition      Transition
	OpponentChanged bool
}

// Store coordinates updates from the pollers and the mutation manager.
// The committed replica is written only by Apply*/Set*/Commit; optimistic
// values live in the override layer and the two are composed at read time.
type Store struct {
	mu        sync.RWMutex
	snapshot  Snapshot
	overrides map[string]any
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{overrides: make(map[string]any)}
}

// ApplyLobby folds one lobby poll into the store. A non-nil err keeps the
// previous snapshot and only records the failure. The returned PollResult
// carries the observed edge and whether the opponent identity changed.
func (s *Store) ApplyLobby(resp *lobby.StateResponse, err error) PollResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return PollResult{Transition: Transition{From: s.snapshot.Phase, To: s.snapshot.Phase}}
	}

	trans := Transition{From: s.snapshot.Phase, To: ParsePhase(resp.LobbyState)}
	if trans.Changed() {
		s.snapshot.TransitionAt = time.Now()
	}
	if trans.RoundEnded() {
		// Leaving active resets the match latch.
		s.snapshot.Match = nil
	}
	if trans.Changed() && trans.From == PhaseInterrim && trans.To == PhaseActive && resp.Opponent != nil {
		if pair, ok := match.Detect(resp.PlayerTags, resp.OpponentTags); ok {
			s.snapshot.Match = &pair
		}
	}

	opponentChanged := opponentUsername(s.snapshot.Lobby.Opponent) != opponentUsername(resp.Opponent)
	if opponentChanged {
		s.snapshot.Partner = nil
	}

	s.snapshot.Lobby = *resp
	s.snapshot.HasLobby = true
	s.snapshot.Tags = resp.PlayerTags
	s.snapshot.Phase = trans.To
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0

	return PollResult{
		Transition:      trans,
		OpponentChanged: opponentChanged && resp.Opponent != nil,
	}
}

// ApplyAdmin folds one organizer poll into the store.
func (s *Store) ApplyAdmin(resp *lobby.AdminStateResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.Admin = resp
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetPartner stores the fetched partner profile.
func (s *Store) SetPartner(profile *lobby.PartnerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Partner = profile
}

// SetHistory replaces the committed interaction list after reconciliation.
func (s *Store) SetHistory(list []lobby.Interaction, hasMore bool, nextOffset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.History = cloneHistory(list)
	s.snapshot.HistoryLoaded = true
	s.snapshot.HistoryHasMore = hasMore
	s.snapshot.HistoryNextOffset = nextOffset
}

// SetHistoryList replaces the committed list while preserving the
// pagination cursor (merge polls always refetch the first page).
func (s *Store) SetHistoryList(list []lobby.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.History = cloneHistory(list)
}

// History returns the committed interaction list without overrides. The
// reconciler merges against this, never against the composed view.
func (s *Store) History() []lobby.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHistory(s.snapshot.History)
}

// SetTags replaces the committed tag profile.
func (s *Store) SetTags(tags lobby.TagProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Tags = tags
}

// RecordError notes a failed auxiliary fetch without touching replica data.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// SetAudioBlocked flags that autonomous playback was refused, so the UI can
// offer its one-time manual prompt.
func (s *Store) SetAudioBlocked(blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.AudioBlocked = blocked
}

// Snapshot returns a copy of the current state with overrides composed in.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.History = s.composedHistoryLocked()
	if tags, ok := s.overrides[overrideKey(RecordProfile, FieldTags)]; ok {
		snap.Tags = tags.(lobby.TagProfile)
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Override layer. These four methods implement the mutation manager's
// value layer: committed values and optimistic values never share storage.

// Effective returns the value the user currently sees for (record, field):
// the override when present, else the committed value. The second return is
// false when the field has no value at all (an unrated interaction).
func (s *Store) Effective(record, field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.overrides[overrideKey(record, field)]; ok {
		return v, true
	}
	return s.committedLocked(record, field)
}

// SetOverride applies an optimistic value for (record, field).
func (s *Store) SetOverride(record, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[overrideKey(record, field)] = value
}

// ClearOverride removes the optimistic value, restoring the committed one.
func (s *Store) ClearOverride(record, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, overrideKey(record, field))
}

// Commit writes a confirmed value into the committed replica and drops the
// matching override in the same critical section, so readers never observe
// the stale committed value in between.
func (s *Store) Commit(record, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case record == RecordProfile && field == FieldTags:
		s.snapshot.Tags = value.(lobby.TagProfile)
	default:
		for i := range s.snapshot.History {
			if s.snapshot.History[i].Key() != record {
				continue
			}
			applyField(&s.snapshot.History[i], field, value)
			break
		}
	}
	delete(s.overrides, overrideKey(record, field))
}

func (s *Store) committedLocked(record, field string) (any, bool) {
	if record == RecordProfile && field == FieldTags {
		return s.snapshot.Tags, true
	}
	for _, rec := range s.snapshot.History {
		if rec.Key() != record {
			continue
		}
		switch field {
		case FieldRating:
			if rec.PartnerStarRating == nil {
				return nil, false
			}
			return *rec.PartnerStarRating, true
		case FieldShowContact:
			return rec.UserShowContact, true
		}
	}
	return nil, false
}

func (s *Store) composedHistoryLocked() []lobby.Interaction {
	out := cloneHistory(s.snapshot.History)
	for i := range out {
		key := out[i].Key()
		if v, ok := s.overrides[overrideKey(key, FieldRating)]; ok {
			applyField(&out[i], FieldRating, v)
		}
		if v, ok := s.overrides[overrideKey(key, FieldShowContact)]; ok {
			applyField(&out[i], FieldShowContact, v)
		}
	}
	return out
}

func applyField(rec *lobby.Interaction, field string, value any) {
	switch field {
	case FieldRating:
		if value == nil {
			rec.PartnerStarRating = nil
			return
		}
		n := value.(int)
		rec.PartnerStarRating = &n
	case FieldShowContact:
		rec.UserShowContact = value.(bool)
	}
}

func overrideKey(record, field string) string {
	return record + "\x00" + field
}

func opponentUsername(ref *lobby.PartnerRef) string {
	if ref == nil {
		return ""
	}
	return ref.Username
}

func cloneHistory(list []lobby.Interaction) []lobby.Interaction {
	if len(list) == 0 {
		return nil
	}
	dup := make([]lobby.Interaction, len(list))
	copy(dup, list)
	return dup
}
