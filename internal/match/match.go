// Package match computes bidirectional work-tag matches between two
// participants' offered and desired tag sets.
package match

import "github.com/ReunioOrg/reuneo/internal/lobby"

// Pair is the single tag pairing surfaced to the UI when a match exists.
// PlayerTag comes from the local participant's offered tags, OpponentTag from
// the opponent's.
type Pair struct {
	PlayerTag   string
	OpponentTag string
}

// Detect reports whether player and opponent match bidirectionally: each
// side must offer at least one tag the other side desires. The returned pair
// is the first match in scan order (player.TagsWork order, then
// opponent.TagsWork order), not a best match.
func Detect(player, opponent lobby.TagProfile) (Pair, bool) {
	playerTag, ok := firstIntersection(player.TagsWork, opponent.DesiringTagsWork)
	if !ok {
		return Pair{}, false
	}
	opponentTag, ok := firstIntersection(opponent.TagsWork, player.DesiringTagsWork)
	if !ok {
		return Pair{}, false
	}
	return Pair{PlayerTag: playerTag, OpponentTag: opponentTag}, true
}

// firstIntersection returns the first element of offered that appears in
// desired, preserving offered's order.
func firstIntersection(offered, desired []string) (string, bool) {
	if len(offered) == 0 || len(desired) == 0 {
		return "", false
	}
	want := make(map[string]struct{}, len(desired))
	for _, tag := range desired {
		want[tag] = struct{}{}
	}
	for _, tag := range offered {
		if _, ok := want[tag]; ok {
			return tag, true
		}
	}
	return "", false
}
