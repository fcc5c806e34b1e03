package crew

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.StaffID
	}
	return out
}

func TestRankPriorityThenWins(t *testing.T) {
	in := []Candidate{
		{StaffID: "1", Priority: 2, Wins: 0},
		{StaffID: "2", Priority: 1, Wins: 5},
		{StaffID: "3", Priority: 1, Wins: 0},
	}
	assert.Equal(t, []string{"3", "2", "1"}, ids(Rank(in)))
	assert.Equal(t, "1", in[0].StaffID, "input must not be reordered")
}

func TestRankOlderLastWinFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Candidate{
		{StaffID: "recent", Wins: 1, LastWin: base.Add(48 * time.Hour)},
		{StaffID: "old", Wins: 1, LastWin: base},
		{StaffID: "zz-never", Wins: 1},
		{StaffID: "b", Wins: 1, LastWin: base},
	}
	assert.Equal(t, []string{"zz-never", "b", "old", "recent"}, ids(Rank(in)))
}
