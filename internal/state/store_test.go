package state

import (
	"errors"
	"testing"

	"github.com/ReunioOrg/reuneo/internal/lobby"
)

func activeState(opponent *lobby.PartnerRef) *lobby.StateResponse {
	return &lobby.StateResponse{
		LobbyState:    lobby.StateActive,
		RoundTimeLeft: 120,
		RoundDuration: 300,
		Opponent:      opponent,
	}
}

func TestApplyLobby_ErrorKeepsPreviousSnapshot(t *testing.T) {
	store := NewStore()
	store.ApplyLobby(activeState(&lobby.PartnerRef{Username: "ada"}), nil)

	store.ApplyLobby(nil, errors.New("network down"))
	store.ApplyLobby(nil, errors.New("network down"))

	snap := store.Snapshot()
	if !snap.HasLobby || snap.Lobby.Opponent == nil {
		t.Fatalf("failed poll discarded previous data: %#v", snap.Lobby)
	}
	if snap.LastError == nil {
		t.Fatalf("LastError = nil, want recorded failure")
	}
	if !snap.IsOffline() {
		t.Fatalf("IsOffline = false after %d failures, want true", snap.ConsecutiveFailures)
	}
}

func TestApplyLobby_EdgesAreObservedOnce(t *testing.T) {
	store := NewStore()

	res := store.ApplyLobby(&lobby.StateResponse{LobbyState: lobby.StateCheckin}, nil)
	if !res.Transition.Changed() {
		t.Fatalf("first poll reported no edge")
	}

	res = store.ApplyLobby(&lobby.StateResponse{LobbyState: lobby.StateCheckin}, nil)
	if res.Transition.Changed() {
		t.Fatalf("repeated checkin report produced an edge")
	}

	res = store.ApplyLobby(activeState(nil), nil)
	if !res.Transition.RoundStarted() {
		t.Fatalf("checkin→active not reported as round start")
	}
}

func TestApplyLobby_MatchLatch(t *testing.T) {
	store := NewStore()
	store.ApplyLobby(&lobby.StateResponse{LobbyState: lobby.StateInterrim}, nil)

	resp := activeState(&lobby.PartnerRef{Name: "Ada", Username: "ada"})
	resp.PlayerTags = lobby.TagProfile{TagsWork: []string{"sales", "eng"}, DesiringTagsWork: []string{"eng"}}
	resp.OpponentTags = lobby.TagProfile{TagsWork: []string{"eng"}, DesiringTagsWork: []string{"sales"}}

	store.ApplyLobby(resp, nil)
	snap := store.Snapshot()
	if snap.Match == nil {
		t.Fatalf("interrim→active with mutual tags did not set match")
	}
	if snap.Match.PlayerTag != "sales" || snap.Match.OpponentTag != "eng" {
		t.Fatalf("match pair = %+v, want {sales eng}", *snap.Match)
	}

	// Repeated active polls keep the latch without recomputing.
	store.ApplyLobby(resp, nil)
	if store.Snapshot().Match == nil {
		t.Fatalf("latch cleared by repeated active report")
	}

	// Leaving active resets the latch.
	store.ApplyLobby(&lobby.StateResponse{LobbyState: lobby.StateInterrim}, nil)
	if store.Snapshot().Match != nil {
		t.Fatalf("latch survived leaving active")
	}
}

func TestApplyLobby_OpponentChangeClearsPartner(t *testing.T) {
	store := NewStore()
	store.ApplyLobby(activeState(&lobby.PartnerRef{Username: "ada"}), nil)
	store.SetPartner(&lobby.PartnerProfile{Name: "Ada"})

	res := store.ApplyLobby(activeState(&lobby.PartnerRef{Username: "lin"}), nil)
	if !res.OpponentChanged {
		t.Fatalf("opponent swap not reported")
	}
	if store.Snapshot().Partner != nil {
		t.Fatalf("stale partner profile kept after opponent change")
	}

	res = store.ApplyLobby(activeState(&lobby.PartnerRef{Username: "lin"}), nil)
	if res.OpponentChanged {
		t.Fatalf("unchanged opponent reported as changed")
	}
}

func TestOverrides_ComposeAtReadTime(t *testing.T) {
	store := NewStore()
	three := 3
	store.SetHistory([]lobby.Interaction{
		{
			LobbyDate:         "2026-08-10",
			PairedWith:        lobby.PairedPartner{Username: "ada", Name: "Ada"},
			PartnerStarRating: &three,
		},
	}, false, 0)

	key := "user:ada"

	if v, ok := store.Effective(key, FieldRating); !ok || v.(int) != 3 {
		t.Fatalf("Effective = %v/%v, want 3", v, ok)
	}

	store.SetOverride(key, FieldRating, 5)
	if v, _ := store.Effective(key, FieldRating); v.(int) != 5 {
		t.Fatalf("Effective after override = %v, want 5", v)
	}
	snap := store.Snapshot()
	if *snap.History[0].PartnerStarRating != 5 {
		t.Fatalf("composed snapshot rating = %d, want 5", *snap.History[0].PartnerStarRating)
	}
	if got := store.History(); *got[0].PartnerStarRating != 3 {
		t.Fatalf("committed history rating = %d, want untouched 3", *got[0].PartnerStarRating)
	}

	store.ClearOverride(key, FieldRating)
	if v, _ := store.Effective(key, FieldRating); v.(int) != 3 {
		t.Fatalf("Effective after rollback = %v, want 3", v)
	}

	store.SetOverride(key, FieldRating, 4)
	store.Commit(key, FieldRating, 4)
	if got := store.History(); *got[0].PartnerStarRating != 4 {
		t.Fatalf("committed rating after Commit = %d, want 4", *got[0].PartnerStarRating)
	}
	snap = store.Snapshot()
	if *snap.History[0].PartnerStarRating != 4 {
		t.Fatalf("composed rating after Commit = %d, want 4", *snap.History[0].PartnerStarRating)
	}
}

func TestOverrides_UnratedFieldReportsAbsent(t *testing.T) {
	store := NewStore()
	store.SetHistory([]lobby.Interaction{
		{PairedWith: lobby.PairedPartner{Username: "ada"}},
	}, false, 0)

	if _, ok := store.Effective("user:ada", FieldRating); ok {
		t.Fatalf("unrated interaction reported a rating")
	}
	if v, ok := store.Effective("user:ada", FieldShowContact); !ok || v.(bool) {
		t.Fatalf("show contact = %v/%v, want false/true", v, ok)
	}
}

func TestOverrides_MergeDoesNotClobberPendingEdit(t *testing.T) {
	store := NewStore()
	store.SetHistory([]lobby.Interaction{
		{PairedWith: lobby.PairedPartner{Username: "ada"}},
	}, false, 0)
	store.SetOverride("user:ada", FieldRating, 3)

	// A background poll rewrites the committed record (stale server rating).
	stale := 1
	store.SetHistory([]lobby.Interaction{
		{
			PairedWith:         lobby.PairedPartner{Username: "ada"},
			PartnerStarRating:  &stale,
			PartnerShowContact: true,
		},
	}, false, 0)

	snap := store.Snapshot()
	if *snap.History[0].PartnerStarRating != 3 {
		t.Fatalf("pending rating = %d, want optimistic 3 preserved", *snap.History[0].PartnerStarRating)
	}
	if !snap.History[0].PartnerShowContact {
		t.Fatalf("non-pending field not refreshed by merge")
	}
}

func TestTags_OverrideAndCommit(t *testing.T) {
	store := NewStore()
	resp := activeState(nil)
	resp.PlayerTags = lobby.TagProfile{TagsWork: []string{"eng"}}
	store.ApplyLobby(resp, nil)

	staged := lobby.TagProfile{TagsWork: []string{"eng", "sales"}}
	store.SetOverride(RecordProfile, FieldTags, staged)
	if got := store.Snapshot().Tags; len(got.TagsWork) != 2 {
		t.Fatalf("staged tags = %v, want 2 entries", got.TagsWork)
	}

	store.Commit(RecordProfile, FieldTags, staged)
	if got := store.Snapshot().Tags; len(got.TagsWork) != 2 {
		t.Fatalf("committed tags = %v, want 2 entries", got.TagsWork)
	}
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in   string
		want Phase
	}{
		{"checkin", PhaseCheckin},
		{" ACTIVE ", PhaseActive},
		{"interrim", PhaseInterrim},
		{"terminated", PhaseTerminated},
		{"garbage", PhaseUnknown},
		{"", PhaseUnknown},
	}
	for _, tt := range tests {
		if got := ParsePhase(tt.in); got != tt.want {
			t.Errorf("ParsePhase(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
