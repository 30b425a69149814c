// Package state provides thread-safe state management for the Reuneo client.
//
// # Overview
//
// This package implements the store that coordinates three writers: the
// background pollers (lobby, history, partner), the optimistic mutation
// manager, and the audio prompt flag. The UI only ever reads composed
// snapshots.
//
// # Two Layers
//
// The store keeps committed server state and optimistic user edits in
// disjoint layers:
//
//	Committed replica:            Override layer:
//	┌────────────────┐           ┌──────────────────┐
//	│ ApplyLobby()   │           │ SetOverride()    │
//	│ SetHistory()   │           │ ClearOverride()  │
//	│ Commit()       │           │ Commit()         │
//	└──────┬─────────┘           └──────┬───────────┘
//	       └──────────┬─────────────────┘
//	                  ▼
//	          store.Snapshot()  (override wins per field)
//
// Pollers write only the committed replica and the mutation manager writes
// only the override layer, so a background merge can never clobber a pending
// edit. Rollback is just dropping the override; the committed value
// underneath was never touched.
//
// # Update Semantics
//
// ApplyLobby has special error handling behavior:
//
//	// Success case: replace lobby state, detect edges
//	store.ApplyLobby(resp, nil)
//	→ snapshot.Lobby = *resp
//	→ snapshot.LastError = nil
//	→ returns the observed phase transition
//
//	// Error case: keep old data, record the failure
//	store.ApplyLobby(nil, err)
//	→ snapshot.Lobby = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// This ensures the UI always has the most recent successful data to display
// while also being informed of polling failures. IsOffline reports once
// failures repeat across polls.
//
// # Edge Detection
//
// ApplyLobby compares the previous and new phase and reports the transition
// to the caller exactly once, so audio cues and the match latch fire on the
// edge rather than on every poll. The bidirectional tag match is computed on
// the interrim→active edge and latched until the round ends.
//
// # Concurrency Model
//
// The Store uses a readers-writer lock. Writers (pollers, mutation manager)
// take the write lock; Snapshot and Effective take the read lock. Snapshots
// are returned by value with the history slice defensively copied, so the UI
// can render without holding any lock.
package state
