package governance

// Tally is the current vote count for a proposal, one row per member.
type Tally struct {
	Yes     int `json:"yes"`
	No      int `json:"no"`
	Abstain int `json:"abstain"`
}

func (t Tally) Total() int { return t.Yes + t.No + t.Abstain }

// Verdict is the outcome of evaluating a tally against community policy.
type Verdict struct {
	QuorumReached bool `json:"quorumReached"`
	Passed        bool `json:"passed"`
}

// Evaluate converts a tally, membership count and quorum policy into a
// verdict. Quorum counts every cast vote including abstentions; passing
// requires strictly more yes than no, so ties fail. Deterministic and
// side-effect-free: this is the only place a proposal outcome is decided.
func Evaluate(tally Tally, totalMembers int64, quorumPercent int) Verdict {
	total := tally.Total()
	quorumReached := totalMembers > 0 &&
		total*100 >= quorumPercent*int(totalMembers)
	return Verdict{
		QuorumReached: quorumReached,
		Passed:        quorumReached && tally.Yes > tally.No,
	}
}
