// Package history reconciles polled interaction snapshots into the local
// list without discarding positions or re-ordering unchanged records.
package history

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ReunioOrg/reuneo/internal/lobby"
)

// Mode selects how an incoming snapshot combines with the current list.
type Mode int

const (
	// ModeReplace discards the current list (initial load).
	ModeReplace Mode = iota
	// ModeAppend concatenates a pagination page.
	ModeAppend
	// ModeMerge folds a background poll into the current list in place.
	ModeMerge
)

// Result is the reconciled list plus change flags for UI notification.
// HasNew and HasUpdated use structural equality, so a re-fetched but
// identical record reports neither.
type Result struct {
	List       []lobby.Interaction
	HasNew     bool
	HasUpdated bool
}

// Reconcile combines current and incoming according to mode. Inputs are not
// mutated; the returned list is freshly allocated and sorted by Sort's law.
func Reconcile(current, incoming []lobby.Interaction, mode Mode) Result {
	switch mode {
	case ModeAppend:
		return reconcileAppend(current, incoming)
	case ModeMerge:
		return reconcileMerge(current, incoming)
	default:
		out := cloneList(incoming)
		Sort(out)
		return Result{List: out, HasNew: len(out) > 0}
	}
}

func reconcileAppend(current, incoming []lobby.Interaction) Result {
	out := cloneList(current)
	seen := make(map[string]struct{}, len(current))
	for idx, rec := range current {
		seen[keyFor(rec, idx)] = struct{}{}
	}
	added := false
	for idx, rec := range incoming {
		key := keyFor(rec, len(current)+idx)
		if _, dup := seen[key]; dup {
			// Overlapping pages resend boundary records; first copy wins.
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
		added = true
	}
	Sort(out)
	return Result{List: out, HasNew: added}
}

func reconcileMerge(current, incoming []lobby.Interaction) Result {
	out := cloneList(current)
	index := make(map[string]int, len(current))
	for idx, rec := range current {
		index[keyFor(rec, idx)] = idx
	}

	var fresh []lobby.Interaction
	hasUpdated := false
	for idx, rec := range incoming {
		pos, known := index[keyFor(rec, idx)]
		if !known {
			fresh = append(fresh, rec)
			continue
		}
		if !reflect.DeepEqual(out[pos], rec) {
			hasUpdated = true
		}
		// Replace in place so unchanged records keep their list position.
		out[pos] = rec
	}

	if len(fresh) == 0 {
		return Result{List: out, HasUpdated: hasUpdated}
	}
	combined := make([]lobby.Interaction, 0, len(fresh)+len(out))
	combined = append(combined, fresh...)
	combined = append(combined, out...)
	Sort(combined)
	return Result{List: combined, HasNew: true, HasUpdated: hasUpdated}
}

// Sort applies the history sort law in place: record date descending with
// missing dates sorting earliest, then display name ascending
// case-insensitive.
func Sort(list []lobby.Interaction) {
	sort.SliceStable(list, func(i, j int) bool {
		di, dj := list[i].ParsedLobbyDate(), list[j].ParsedLobbyDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return strings.ToLower(list[i].DisplayName()) < strings.ToLower(list[j].DisplayName())
	})
}

func keyFor(rec lobby.Interaction, pos int) string {
	if key := rec.Key(); key != "" {
		return key
	}
	return fmt.Sprintf("pos:%d", pos)
}

func cloneList(list []lobby.Interaction) []lobby.Interaction {
	if len(list) == 0 {
		return nil
	}
	dup := make([]lobby.Interaction, len(list))
	copy(dup, list)
	return dup
}
