package crew

import (
	"sort"
	"time"
)

// Candidate is an eligible lead with its ranking inputs.
type Candidate struct {
	StaffID  string
	Priority int
	// Wins counts confirmed ledger rows for the operator's vehicle.
	Wins    int
	LastWin time.Time
}

// Rank returns the candidates ordered best first: lower priority value, then
// fewer wins, then the older most recent win (no win at all ranks first),
// then staff id. The input is not modified.
func Rank(cands []Candidate) []Candidate {
	out := append([]Candidate(nil), cands...)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

func better(a, b Candidate) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Wins != b.Wins {
		return a.Wins < b.Wins
	}
	if !a.LastWin.Equal(b.LastWin) {
		if a.LastWin.IsZero() {
			return true
		}
		if b.LastWin.IsZero() {
			return false
		}
		return a.LastWin.Before(b.LastWin)
	}
	return a.StaffID < b.StaffID
}
