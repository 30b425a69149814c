// Package app provides the orchestration layer for the Reuneo client.
//
// # Overview
//
// This package wires together configuration, polling, shared state, optimistic
// mutations, audio, and the UI to create the complete Reuneo TUI experience.
// It is the composition root where all dependencies are initialized and
// connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load client configuration from ~/.config/reuneo/config.toml
//  2. Set up the file-backed diagnostic log
//  3. Initialize the HTTP client for the lobby API
//  4. Create the shared state.Store for UI and poller coordination
//  5. Build the audio synchronizer and the optimistic mutation manager
//  6. Launch the background poller goroutine for continuous updates
//  7. Start the TUI and block until the user exits or the context cancels
//
// # Components
//
//   - app.go: Main Run function and dependency wiring
//   - poller.go: Background goroutine that fetches lobby and history data
//   - guard.go: Per-resource fetch gate (one request in flight, pause while hidden)
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()      Read client config
//	       ├─────> lobby.NewClient()  Create HTTP client
//	       ├─────> state.NewStore()   Shared state container
//	       ├─────> mutate.NewManager() Debounced write-through edits
//	       ├─────> NewPoller().Start() Launch background updates
//	       └─────> ui.Run()           Start TUI (blocks)
//
//	Background Poller Loop:
//	┌───────────────────────────────────────────┐
//	│ Start() goroutine                         │
//	│  ├─> FetchState()        every tick       │
//	│  ├─> FetchInteractions() every Nth tick   │
//	│  ├─> FetchPartnerProfile() on new pairing │
//	│  └─> store.Apply*()  (atomic)             │
//	│      └─> UI reads store.Snapshot()        │
//	└───────────────────────────────────────────┘
//
// # Polling Behavior
//
// The lobby poll runs at a fixed interval (default: 2 seconds) and the
// history poll piggybacks on every Nth lobby tick. Each resource has its own
// Guard, so a new request never starts while the previous one for that
// resource is still in flight, and all polling pauses while the terminal is
// unfocused. Regaining focus kicks an immediate refresh.
//
// Phase transitions observed by a lobby poll drive the audio synchronizer:
// entering checkin or interrim starts the looping ambient track, a round
// start switches to the main track positioned from the server clock, and
// lobby termination releases playback entirely.
//
// # Error Handling
//
// The app package distinguishes between fatal and recoverable errors:
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Missing lobby code
//   - Lobby client initialization failure
//
// Recoverable errors (logged, polling continues):
//   - Periodic state or history fetch failures
//   - Partner profile fetch failures
//   - Audio playback failures
//
// Poll failures keep the previous snapshot on screen; the UI shows an offline
// indicator once failures repeat.
package app
