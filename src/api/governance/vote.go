package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xSardius/dalaran/src/api/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Votes is the vote ledger: at most one current vote per (proposal, member).
type Votes struct {
	db      *gorm.DB
	members Members
}

func NewVotes(db *gorm.DB) Votes { return Votes{db: db, members: NewMembers(db)} }

// CastVote records or replaces the member's vote on a proposal. The write is
// a single upsert against the (proposal_id, member_id) unique index, so
// concurrent casts by the same member serialize in the store and the final
// row holds exactly one of the submitted choices. Votes are rejected at
// write time once the proposal leaves voting state or its deadline passes,
// even if the read-side finalizer has not run yet.
func (v Votes) CastVote(ctx context.Context, proposalID, address, choice string) (Tally, error) {
	switch choice {
	case types.ChoiceYes, types.ChoiceNo, types.ChoiceAbstain:
	default:
		return Tally{}, fmt.Errorf("%w: choice must be yes, no, or abstain", ErrInvalidInput)
	}

	var proposal types.Proposal
	err := v.db.WithContext(ctx).First(&proposal, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Tally{}, fmt.Errorf("%w: proposal %s", ErrNotFound, proposalID)
	}
	if err != nil {
		return Tally{}, err
	}

	if proposal.State != types.StateVoting {
		return Tally{}, fmt.Errorf("%w: proposal is %s", ErrVotingClosed, proposal.State)
	}
	if proposal.VotingEndsAt != nil && !time.Now().Before(*proposal.VotingEndsAt) {
		return Tally{}, fmt.Errorf("%w: voting period expired", ErrVotingClosed)
	}

	member, err := v.members.ResolveMember(ctx, proposal.CommunityID, address)
	if err != nil {
		return Tally{}, err
	}

	vote := types.Vote{
		ID:         uuid.NewString(),
		ProposalID: proposalID,
		MemberID:   member.ID,
		Choice:     choice,
		CastAt:     time.Now(),
	}
	err = v.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "cast_at"}),
	}).Create(&vote).Error
	if err != nil {
		return Tally{}, err
	}

	return v.Tally(ctx, proposalID)
}

// Tally groups current vote rows by choice. One row per member is enforced
// by the unique index, so no member is counted twice.
func (v Votes) Tally(ctx context.Context, proposalID string) (Tally, error) {
	type agg struct {
		Choice string
		Count  int
	}
	var rows []agg
	err := v.db.WithContext(ctx).Model(&types.Vote{}).
		Select("choice, count(*) as count").
		Where("proposal_id = ?", proposalID).
		Group("choice").Scan(&rows).Error
	if err != nil {
		return Tally{}, err
	}

	var t Tally
	for _, r := range rows {
		switch r.Choice {
		case types.ChoiceYes:
			t.Yes = r.Count
		case types.ChoiceNo:
			t.No = r.Count
		case types.ChoiceAbstain:
			t.Abstain = r.Count
		}
	}
	return t, nil
}

// MemberVote returns the member's current choice on a proposal, or "" if
// they have not voted.
func (v Votes) MemberVote(ctx context.Context, proposalID, memberID string) (string, error) {
	var vote types.Vote
	err := v.db.WithContext(ctx).
		First(&vote, "proposal_id = ? AND member_id = ?", proposalID, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vote.Choice, nil
}
