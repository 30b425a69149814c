// Package config handles loading and parsing the Reuneo client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/reuneo/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults per field
//
// Missing config files are NOT an error. Reuneo works out of the box with
// only a lobby code; the config file exists for people who want to point the
// client at a different server, tune poll cadence, or wire up audio.
//
// # Default Values
//
//   - Server: https://lobby.reuneo.app
//   - Lobby poll: every 2 seconds, history every 15 seconds
//   - History page size: 20
//   - Debounce windows: rating 300ms, contact 400ms, tags 500ms
//   - Log file: ~/.local/share/reuneo/reuneo.log
//   - Audio: disabled until a player command is configured
//
// # TOML Format
//
// Example config.toml:
//
//	server_url = "https://lobby.reuneo.app"
//	lobby_code = "XK42"
//	poll_seconds = 2
//
//	[audio]
//	player_command = "mpv --no-video --start={pos} {file}"
//	loop_flag = "--loop"
//	ambient_track = "~/Music/lobby-ambient.mp3"
//	main_track = "~/Music/round-track.mp3"
//	cue_seconds = 300
//
// All fields are optional. Tilde expansion is performed automatically for
// paths.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g. cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// The config package is read-only and stateless. It loads configuration once
// at startup and returns an immutable Config struct.
package config
