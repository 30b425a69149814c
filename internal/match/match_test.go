package match

import (
	"testing"

	"github.com/ReunioOrg/reuneo/internal/lobby"
)

func profile(offered, desired []string) lobby.TagProfile {
	return lobby.TagProfile{TagsWork: offered, DesiringTagsWork: desired}
}

func TestDetect_Bidirectional(t *testing.T) {
	tests := []struct {
		name     string
		player   lobby.TagProfile
		opponent lobby.TagProfile
		want     bool
	}{
		{
			"mutual interest",
			profile([]string{"sales"}, []string{"eng"}),
			profile([]string{"eng"}, []string{"sales"}),
			true,
		},
		{
			"one-directional only",
			profile([]string{"sales"}, []string{"eng"}),
			profile([]string{"design"}, []string{"sales"}),
			false,
		},
		{
			"no overlap",
			profile([]string{"sales"}, []string{"eng"}),
			profile([]string{"design"}, []string{"ops"}),
			false,
		},
		{
			"empty sides",
			profile(nil, nil),
			profile([]string{"eng"}, []string{"sales"}),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := Detect(tt.player, tt.opponent); got != tt.want {
				t.Errorf("Detect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect_Symmetric(t *testing.T) {
	a := profile([]string{"sales", "eng"}, []string{"eng"})
	b := profile([]string{"eng"}, []string{"sales"})

	_, ab := Detect(a, b)
	_, ba := Detect(b, a)
	if ab != ba {
		t.Fatalf("Detect(a,b) = %v, Detect(b,a) = %v, want symmetric booleans", ab, ba)
	}
}

func TestDetect_FirstPairInScanOrder(t *testing.T) {
	// Local offers sales and eng, opponent desires sales; opponent offers
	// eng, which local desires. First pair follows TagsWork order, not any
	// best-match search.
	player := profile([]string{"sales", "eng"}, []string{"eng"})
	opponent := profile([]string{"eng"}, []string{"sales"})

	pair, ok := Detect(player, opponent)
	if !ok {
		t.Fatalf("Detect = false, want match")
	}
	if pair.PlayerTag != "sales" || pair.OpponentTag != "eng" {
		t.Fatalf("pair = %+v, want {sales eng}", pair)
	}
}

func TestDetect_ScanOrderPrefersEarlierOfferedTag(t *testing.T) {
	player := profile([]string{"ops", "sales"}, []string{"design", "eng"})
	opponent := profile([]string{"eng", "design"}, []string{"sales", "ops"})

	pair, ok := Detect(player, opponent)
	if !ok {
		t.Fatalf("Detect = false, want match")
	}
	// ops appears before sales in the player's offered list, eng before
	// design in the opponent's.
	if pair.PlayerTag != "ops" || pair.OpponentTag != "eng" {
		t.Fatalf("pair = %+v, want {ops eng}", pair)
	}
}
