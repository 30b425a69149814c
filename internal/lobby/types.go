package lobby

import (
	"strings"
	"time"
)

const lobbyTimestampLayout = "2006-01-02 15:04:05"

// Lobby state values reported by the server.
const (
	StateCheckin    = "checkin"
	StateActive     = "active"
	StateInterrim   = "interrim"
	StateTerminated = "terminated"
)

// StateResponse mirrors the payload returned by /api/lobby/state.
// It is superseded wholesale on every poll.
type StateResponse struct {
	LobbyState    string      `json:"lobby_state"`
	RoundTimeLeft int         `json:"round_time_left"`
	RoundDuration int         `json:"round_duration"`
	Opponent      *PartnerRef `json:"opponent"`
	TableNumber   int         `json:"table_number"`
	CustomTags    []string    `json:"custom_tags"`
	PlayerTags    TagProfile  `json:"player_tags"`
	OpponentTags  TagProfile  `json:"opponent_tags"`
}

// PartnerRef identifies the current conversation partner. Username is the
// identity key used to detect an opponent change between polls.
type PartnerRef struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// TagProfile holds a participant's offered and desired work tags.
// Both lists are capped at MaxTags entries.
type TagProfile struct {
	TagsWork         []string `json:"tags_work"`
	DesiringTagsWork []string `json:"desiring_tags_work"`
}

// MaxTags is the server-enforced cap on each tag list.
const MaxTags = 5

// AdminStateResponse mirrors /api/lobby/admin_state.
type AdminStateResponse struct {
	UnpairedPlayers []string    `json:"unpaired_players"`
	PairedPlayers   [][2]string `json:"paired_players"`
	CurrentRound    int         `json:"current_round"`
	LobbyState      string      `json:"lobby_state"`
	RoundTimeLeft   int         `json:"round_time_left"`
}

// PartnerProfile mirrors /api/profile/partner.
type PartnerProfile struct {
	Name      string `json:"name"`
	ImageData string `json:"image_data"`
}

// Interaction is one attendee-history record. Records are created server-side
// and only ever updated (rating, contact share) from this client.
type Interaction struct {
	LobbyID            string         `json:"lobby_id"`
	LobbyDate          string         `json:"lobby_date"`
	InteractionDate    string         `json:"interaction_date"`
	PairedWith         PairedPartner  `json:"paired_with"`
	PartnerStarRating  *int           `json:"partner_star_rating"`
	UserShowContact    bool           `json:"user_show_contact"`
	PartnerShowContact bool           `json:"partner_show_contact"`
	SocialLinks        map[string]string `json:"social_links,omitempty"`
}

// PairedPartner describes the other party of an interaction.
type PairedPartner struct {
	Username    string            `json:"username"`
	Name        string            `json:"name"`
	ImageRef    string            `json:"image_ref"`
	SocialLinks map[string]string `json:"social_links"`
}

// Key returns the stable identity for reconciliation: the partner username
// when present, otherwise the lobby/interaction date pair. An empty string
// means the caller must fall back to a positional key.
func (i Interaction) Key() string {
	if u := strings.TrimSpace(i.PairedWith.Username); u != "" {
		return "user:" + u
	}
	if i.LobbyDate != "" || i.InteractionDate != "" {
		return "date:" + i.LobbyDate + "|" + i.InteractionDate
	}
	return ""
}

// ParsedLobbyDate returns the record date used by the history sort law.
// A zero time sorts as earliest.
func (i Interaction) ParsedLobbyDate() time.Time {
	return parseTime(i.LobbyDate)
}

// DisplayName returns the partner name used as the sort tiebreaker.
func (i Interaction) DisplayName() string {
	if n := strings.TrimSpace(i.PairedWith.Name); n != "" {
		return n
	}
	return i.PairedWith.Username
}

// HistoryPage mirrors one page of /api/interactions.
type HistoryPage struct {
	Interactions []Interaction `json:"interactions"`
	HasMore      bool          `json:"has_more"`
	NextOffset   int           `json:"next_offset"`
}

// InteractionPatch carries the changed fields for a single interaction.
// Nil fields are omitted from the request body.
type InteractionPatch struct {
	LobbyID            string `json:"lobby_id"`
	PairedWithUsername string `json:"paired_with_username"`
	PartnerStarRating  *int   `json:"partner_star_rating,omitempty"`
	UserShowContact    *bool  `json:"user_show_contact,omitempty"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(lobbyTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
