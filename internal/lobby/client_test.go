package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("lobby.example.com")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("  "); err == nil {
		t.Fatalf("parseBaseURL accepted empty url, want error")
	}
}

func TestClient_FetchesEndpointsAndAttachesAuth(t *testing.T) {
	t.Parallel()

	var gotStateQuery url.Values
	var gotAuth string
	var gotSession string
	var gotIconBody struct {
		Usernames []string `json:"usernames"`
	}
	var gotPatch InteractionPatch

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSession = r.Header.Get("X-Reuneo-Session")
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/lobby/state":
			gotStateQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(StateResponse{
				LobbyState:    StateActive,
				RoundTimeLeft: 90,
				RoundDuration: 300,
				Opponent:      &PartnerRef{Name: "Ada", Username: "ada"},
				TableNumber:   7,
			})
		case "/api/lobby/admin_state":
			_ = json.NewEncoder(w).Encode(AdminStateResponse{
				UnpairedPlayers: []string{"solo"},
				PairedPlayers:   [][2]string{{"ada", "lin"}},
				CurrentRound:    3,
				LobbyState:      StateActive,
			})
		case "/api/profile/partner":
			_ = json.NewEncoder(w).Encode(PartnerProfile{Name: "Ada", ImageData: "aGk="})
		case "/api/profile/icons":
			_ = json.NewDecoder(r.Body).Decode(&gotIconBody)
			_ = json.NewEncoder(w).Encode(map[string]string{"ada": "aWNvbg=="})
		case "/api/interactions":
			if r.Method == http.MethodPatch {
				_ = json.NewDecoder(r.Body).Decode(&gotPatch)
				_ = json.NewEncoder(w).Encode(Interaction{LobbyID: gotPatch.LobbyID})
				return
			}
			_ = json.NewEncoder(w).Encode(HistoryPage{
				Interactions: []Interaction{{LobbyID: "l1"}},
				HasMore:      true,
				NextOffset:   20,
			})
		case "/api/profile/tags":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Credentials{BearerToken: "tok123"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	state, err := c.FetchState(ctx, "ABCD")
	if err != nil {
		t.Fatalf("FetchState returned error: %v", err)
	}
	if state.LobbyState != StateActive || state.Opponent == nil || state.Opponent.Username != "ada" {
		t.Fatalf("FetchState payload = %#v, want active with opponent ada", state)
	}
	if gotStateQuery.Get("lobby_code") != "ABCD" {
		t.Fatalf("lobby_code query = %q, want ABCD", gotStateQuery.Get("lobby_code"))
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("Authorization = %q, want Bearer tok123", gotAuth)
	}
	if gotSession == "" {
		t.Fatalf("X-Reuneo-Session header missing")
	}

	admin, err := c.FetchAdminState(ctx, "ABCD")
	if err != nil {
		t.Fatalf("FetchAdminState returned error: %v", err)
	}
	if admin.CurrentRound != 3 || len(admin.PairedPlayers) != 1 {
		t.Fatalf("FetchAdminState payload = %#v, want round 3, 1 pair", admin)
	}

	profile, err := c.FetchPartnerProfile(ctx)
	if err != nil {
		t.Fatalf("FetchPartnerProfile returned error: %v", err)
	}
	if profile.Name != "Ada" {
		t.Fatalf("partner name = %q, want Ada", profile.Name)
	}

	icons, err := c.FetchIconBatch(ctx, []string{"ada", "lin"})
	if err != nil {
		t.Fatalf("FetchIconBatch returned error: %v", err)
	}
	if len(gotIconBody.Usernames) != 2 || icons["ada"] != "aWNvbg==" {
		t.Fatalf("icon batch = %v (request %v), want ada icon", icons, gotIconBody.Usernames)
	}

	page, err := c.FetchInteractions(ctx, 0, 20)
	if err != nil {
		t.Fatalf("FetchInteractions returned error: %v", err)
	}
	if !page.HasMore || page.NextOffset != 20 || len(page.Interactions) != 1 {
		t.Fatalf("history page = %#v, want has_more, next_offset 20", page)
	}

	rating := 4
	updated, err := c.UpdateInteraction(ctx, InteractionPatch{
		LobbyID:            "l1",
		PairedWithUsername: "ada",
		PartnerStarRating:  &rating,
	})
	if err != nil {
		t.Fatalf("UpdateInteraction returned error: %v", err)
	}
	if updated.LobbyID != "l1" || gotPatch.PartnerStarRating == nil || *gotPatch.PartnerStarRating != 4 {
		t.Fatalf("patch = %#v, want rating 4 for l1", gotPatch)
	}

	if err := c.SetTags(ctx, TagProfile{TagsWork: []string{"eng"}}); err != nil {
		t.Fatalf("SetTags returned error: %v", err)
	}
}

func TestClient_EmptyIconBatchSkipsRequest(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", Credentials{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	icons, err := c.FetchIconBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchIconBatch returned error: %v", err)
	}
	if len(icons) != 0 {
		t.Fatalf("icons = %v, want empty", icons)
	}
}

func TestClient_StatusCodeMapping(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/lobby/state":
			http.Error(w, "expired", http.StatusUnauthorized)
		case "/api/interactions":
			http.Error(w, "gone", http.StatusNotFound)
		case "/api/profile/partner":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Credentials{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.FetchState(context.Background(), "X")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("FetchState error = %v, want ErrUnauthorized", err)
	}

	_, err = c.UpdateInteraction(context.Background(), InteractionPatch{LobbyID: "l", PairedWithUsername: "u"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateInteraction error = %v, want ErrNotFound", err)
	}

	_, err = c.FetchPartnerProfile(context.Background())
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchPartnerProfile error = %v, want status 500 error", err)
	}
}

func TestClient_CancelledRequestSurfacesContextCanceled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Credentials{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.FetchState(ctx, "X")
		errCh <- err
	}()
	<-started
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled reachable via errors.Is", err)
	}
}

func TestSetTags_RejectsOversizedLists(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", Credentials{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	six := []string{"a", "b", "c", "d", "e", "f"}
	if err := c.SetTags(context.Background(), TagProfile{TagsWork: six}); err == nil {
		t.Fatalf("SetTags accepted %d tags, want error", len(six))
	}
}

func TestInteraction_KeyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		rec  Interaction
		want string
	}{
		{"username", Interaction{PairedWith: PairedPartner{Username: "ada"}}, "user:ada"},
		{"dates", Interaction{LobbyDate: "2026-08-01", InteractionDate: "2026-08-01T19:00:00Z"}, "date:2026-08-01|2026-08-01T19:00:00Z"},
		{"positional", Interaction{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}
