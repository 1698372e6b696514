package governance

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/0xSardius/dalaran/src/api/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProposalInput is the creation request for a proposal.
type ProposalInput struct {
	Title            string
	Description      string
	Kind             string
	Amount           float64
	RecipientAddress string
}

// TallyResult is the read model for a proposal's standing. State reflects
// any finalization performed by the read itself.
type TallyResult struct {
	Tally
	Total         int    `json:"total"`
	TotalMembers  int64  `json:"totalMembers"`
	QuorumPercent int    `json:"quorumPercent"`
	QuorumReached bool   `json:"quorumReached"`
	State         string `json:"state"`
}

// Proposals owns the proposal lifecycle: creation, the voting window, and
// the transition to a terminal outcome once the window closes.
type Proposals struct {
	db      *gorm.DB
	members Members
	votes   Votes
}

func NewProposals(db *gorm.DB) Proposals {
	return Proposals{db: db, members: NewMembers(db), votes: NewVotes(db)}
}

// CreateProposal validates the input, resolves the creator to a member of
// the community, and opens the proposal directly in voting state with a
// deadline fixed from the community's voting period. Later edits to the
// community policy do not move deadlines already issued.
func (p Proposals) CreateProposal(ctx context.Context, communityID, address string, in ProposalInput) (*types.Proposal, error) {
	if n := utf8.RuneCountInString(in.Title); n < 2 || n > 200 {
		return nil, fmt.Errorf("%w: title must be 2-200 characters", ErrInvalidInput)
	}
	kind := in.Kind
	if kind == "" {
		kind = types.KindGeneral
	}
	switch kind {
	case types.KindFunding, types.KindPolicy, types.KindGeneral:
	default:
		return nil, fmt.Errorf("%w: kind must be funding, policy, or general", ErrInvalidInput)
	}
	if kind == types.KindFunding {
		if in.Amount <= 0 {
			return nil, fmt.Errorf("%w: funding proposals require a positive amount", ErrInvalidInput)
		}
		if in.RecipientAddress == "" {
			return nil, fmt.Errorf("%w: funding proposals require a recipient", ErrInvalidInput)
		}
	} else {
		// amount/recipient are set iff kind = funding
		in.Amount = 0
		in.RecipientAddress = ""
	}

	var community types.Community
	err := p.db.WithContext(ctx).First(&community, "id = ?", communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: community %s", ErrNotFound, communityID)
	}
	if err != nil {
		return nil, err
	}

	member, err := p.members.ResolveMember(ctx, communityID, address)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	endsAt := now.Add(time.Duration(community.VotingPeriodHours) * time.Hour)
	proposal := types.Proposal{
		ID:               uuid.NewString(),
		CommunityID:      communityID,
		Title:            in.Title,
		Description:      in.Description,
		Kind:             kind,
		Amount:           in.Amount,
		RecipientAddress: in.RecipientAddress,
		State:            types.StateVoting,
		CreatedBy:        member.ID,
		CreatedAt:        now,
		VotingEndsAt:     &endsAt,
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&proposal).Error; err != nil {
			return err
		}
		return tx.Create(&types.Transaction{
			ID:          uuid.NewString(),
			CommunityID: communityID,
			ProposalID:  &proposal.ID,
			Kind:        types.TxProposalCreated,
			Signature:   "proposal-" + proposal.ID,
			Description: fmt.Sprintf("Created proposal: %q", in.Title),
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Get loads a proposal by id.
func (p Proposals) Get(ctx context.Context, proposalID string) (*types.Proposal, error) {
	var proposal types.Proposal
	err := p.db.WithContext(ctx).First(&proposal, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, proposalID)
	}
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// List returns a community's proposals, newest first.
func (p Proposals) List(ctx context.Context, communityID string) ([]types.Proposal, error) {
	var proposals []types.Proposal
	err := p.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at desc").Find(&proposals).Error
	return proposals, err
}

// GetTally computes the proposal's current tally and standing. As a
// documented side effect, reading a voting proposal whose deadline has
// passed finalizes it to succeeded or defeated before the result is
// returned. The transition is a conditional write and recomputes the
// verdict from committed votes, so concurrent reads settle on the same
// terminal state and a second invocation is a no-op.
func (p Proposals) GetTally(ctx context.Context, proposalID string) (*TallyResult, error) {
	proposal, err := p.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var community types.Community
	if err := p.db.WithContext(ctx).First(&community, "id = ?", proposal.CommunityID).Error; err != nil {
		return nil, err
	}

	tally, err := p.votes.Tally(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	totalMembers, err := p.members.CountMembers(ctx, proposal.CommunityID)
	if err != nil {
		return nil, err
	}

	verdict := Evaluate(tally, totalMembers, community.QuorumPercent)

	state := proposal.State
	if state == types.StateVoting && proposal.VotingEndsAt != nil &&
		proposal.VotingEndsAt.Before(time.Now()) {
		state, err = p.finalize(ctx, proposal.ID, verdict)
		if err != nil {
			return nil, err
		}
	}

	return &TallyResult{
		Tally:         tally,
		Total:         tally.Total(),
		TotalMembers:  totalMembers,
		QuorumPercent: community.QuorumPercent,
		QuorumReached: verdict.QuorumReached,
		State:         state,
	}, nil
}

// finalize moves a voting proposal to its terminal outcome. The guarded
// update only fires while the row is still in voting state; a lost race
// re-reads the winner's result instead of writing a second time.
func (p Proposals) finalize(ctx context.Context, proposalID string, verdict Verdict) (string, error) {
	state := types.StateDefeated
	if verdict.Passed {
		state = types.StateSucceeded
	}

	res := p.db.WithContext(ctx).Model(&types.Proposal{}).
		Where("id = ? AND state = ?", proposalID, types.StateVoting).
		Update("state", state)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// Another reader finalized first; both computed the same verdict
		// from the same committed votes, but read back to be sure.
		current, err := p.Get(ctx, proposalID)
		if err != nil {
			return "", err
		}
		return current.State, nil
	}
	return state, nil
}
