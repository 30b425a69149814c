// Package lobby implements the HTTP client for the Reuneo lobby API.
//
// # Overview
//
// The server is the only authority: every poll supersedes the previous lobby
// state wholesale, and this package never interprets what it fetches. It
// covers the endpoints the client needs:
//
//   - GET  /api/lobby/state        current phase, pairing, round clock, tags
//   - GET  /api/lobby/admin_state  organizer view of the floor
//   - GET  /api/profile/partner    current partner's profile and image
//   - POST /api/profile/icons      batch icon fetch, base64 payloads
//   - GET  /api/interactions       paginated attendee history
//   - PATCH /api/interactions      rating and contact-sharing updates
//   - POST /api/profile/tags       replace the caller's tag profile
//
// # Authentication
//
// Requests authenticate with either a bearer token or a session cookie,
// whichever the Credentials carry. Every request also carries a per-process
// session id header so the server can correlate one client's polls.
//
// # Error Mapping
//
// Response status codes map onto sentinel errors callers can test with
// errors.Is:
//
//   - 401 → ErrUnauthorized (the session is gone, stop retrying)
//   - 404 → ErrNotFound
//   - other non-2xx → plain status error
//
// Transport errors are wrapped so context cancellation stays visible to
// errors.Is(err, context.Canceled); a superseded in-flight write depends on
// that.
package lobby
