package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetcher defines the lobby API surface consumed by the pollers and UI.
// It is implemented by *Client and can be faked in tests.
type Fetcher interface {
	FetchState(ctx context.Context, lobbyCode string) (*StateResponse, error)
	FetchAdminState(ctx context.Context, lobbyCode string) (*AdminStateResponse, error)
	FetchPartnerProfile(ctx context.Context) (*PartnerProfile, error)
	FetchIconBatch(ctx context.Context, usernames []string) (map[string]string, error)
	FetchInteractions(ctx context.Context, offset, limit int) (HistoryPage, error)
	UpdateInteraction(ctx context.Context, patch InteractionPatch) (*Interaction, error)
	SetTags(ctx context.Context, profile TagProfile) error
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Sentinel errors mapped from response status codes.
var (
	// ErrUnauthorized means the session is no longer valid; the caller
	// returns to the entry point rather than retrying.
	ErrUnauthorized = errors.New("lobby: unauthorized")
	// ErrNotFound means the addressed record no longer exists server-side.
	ErrNotFound = errors.New("lobby: not found")
)

// Credentials carries whichever auth material the session bootstrap produced.
// The client only attaches them; acquisition happens elsewhere.
type Credentials struct {
	BearerToken   string
	SessionCookie string
}

// Client talks to the Reuneo lobby HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	creds     Credentials
	session   string
}

const (
	defaultUserAgent = "reuneo/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for the given server base URL.
func NewClient(serverURL string, creds Credentials) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		creds:     creds,
		session:   uuid.NewString(),
	}, nil
}

// FetchState retrieves the attendee-facing lobby snapshot.
func (c *Client) FetchState(ctx context.Context, lobbyCode string) (*StateResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("lobby_code", lobbyCode)
	var payload StateResponse
	if err := c.do(ctx, http.MethodGet, "/api/lobby/state", values, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchAdminState retrieves the organizer-facing lobby snapshot.
func (c *Client) FetchAdminState(ctx context.Context, lobbyCode string) (*AdminStateResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("lobby_code", lobbyCode)
	var payload AdminStateResponse
	if err := c.do(ctx, http.MethodGet, "/api/lobby/admin_state", values, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchPartnerProfile retrieves the current partner's full profile.
func (c *Client) FetchPartnerProfile(ctx context.Context) (*PartnerProfile, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload PartnerProfile
	if err := c.do(ctx, http.MethodGet, "/api/profile/partner", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchIconBatch retrieves small profile icons for the given usernames in one
// request. Usernames absent from the result have no stored icon.
func (c *Client) FetchIconBatch(ctx context.Context, usernames []string) (map[string]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if len(usernames) == 0 {
		return map[string]string{}, nil
	}
	body := struct {
		Usernames []string `json:"usernames"`
	}{Usernames: usernames}
	payload := map[string]string{}
	if err := c.do(ctx, http.MethodPost, "/api/profile/icons", nil, body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchInteractions retrieves one page of the attendee's interaction history.
func (c *Client) FetchInteractions(ctx context.Context, offset, limit int) (HistoryPage, error) {
	if c == nil {
		return HistoryPage{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload HistoryPage
	if err := c.do(ctx, http.MethodGet, "/api/interactions", values, nil, &payload); err != nil {
		return HistoryPage{}, err
	}
	return payload, nil
}

// UpdateInteraction writes changed interaction fields through to the server
// and returns the updated record.
func (c *Client) UpdateInteraction(ctx context.Context, patch InteractionPatch) (*Interaction, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(patch.PairedWithUsername) == "" {
		return nil, fmt.Errorf("paired_with_username required")
	}
	var payload Interaction
	if err := c.do(ctx, http.MethodPatch, "/api/interactions", nil, patch, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SetTags replaces the participant's tag profile.
func (c *Client) SetTags(ctx context.Context, profile TagProfile) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if len(profile.TagsWork) > MaxTags || len(profile.DesiringTagsWork) > MaxTags {
		return fmt.Errorf("tag lists capped at %d entries", MaxTags)
	}
	return c.do(ctx, http.MethodPost, "/api/profile/tags", nil, profile, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	rel := &url.URL{Path: path}
	if query != nil {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Reuneo-Session", c.session)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.BearerToken)
	} else if c.creds.SessionCookie != "" {
		req.Header.Set("Cookie", c.creds.SessionCookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Keeps context.Canceled reachable via errors.Is so superseded
		// requests stay distinguishable from real failures.
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("api %s: %w", rel.Path, ErrNotFound)
	case resp.StatusCode >= 400:
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", serverURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
