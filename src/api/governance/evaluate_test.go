package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		tally         Tally
		totalMembers  int64
		quorumPercent int
		quorumReached bool
		passed        bool
	}{
		{
			name:          "zero members never reaches quorum",
			tally:         Tally{Yes: 1},
			totalMembers:  0,
			quorumPercent: 60,
		},
		{
			name:          "zero votes",
			tally:         Tally{},
			totalMembers:  5,
			quorumPercent: 60,
		},
		{
			name:          "exact quorum threshold counts",
			tally:         Tally{Yes: 2, No: 1},
			totalMembers:  5,
			quorumPercent: 60,
			quorumReached: true,
			passed:        true,
		},
		{
			name:          "below quorum",
			tally:         Tally{Yes: 1, No: 1},
			totalMembers:  5,
			quorumPercent: 60,
		},
		{
			name:          "tie does not pass",
			tally:         Tally{Yes: 2, No: 2},
			totalMembers:  5,
			quorumPercent: 60,
			quorumReached: true,
		},
		{
			name:          "majority no",
			tally:         Tally{Yes: 1, No: 3},
			totalMembers:  5,
			quorumPercent: 60,
			quorumReached: true,
		},
		{
			name:          "abstentions count toward quorum but not the outcome",
			tally:         Tally{Yes: 1, Abstain: 2},
			totalMembers:  5,
			quorumPercent: 60,
			quorumReached: true,
			passed:        true,
		},
		{
			name:          "abstain-only quorum with no yes votes fails",
			tally:         Tally{Abstain: 3},
			totalMembers:  5,
			quorumPercent: 60,
			quorumReached: true,
		},
		{
			name:          "full participation unanimous",
			tally:         Tally{Yes: 5},
			totalMembers:  5,
			quorumPercent: 100,
			quorumReached: true,
			passed:        true,
		},
		{
			name:          "zero quorum percent passes on any yes majority",
			tally:         Tally{Yes: 1},
			totalMembers:  100,
			quorumPercent: 0,
			quorumReached: true,
			passed:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.tally, tt.totalMembers, tt.quorumPercent)
			assert.Equal(t, tt.quorumReached, got.QuorumReached, "quorumReached")
			assert.Equal(t, tt.passed, got.Passed, "passed")
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	tally := Tally{Yes: 2, No: 1, Abstain: 1}
	first := Evaluate(tally, 5, 60)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(tally, 5, 60))
	}
}
