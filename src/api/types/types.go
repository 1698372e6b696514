package types

import "time"

// Member roles
const (
	RoleAdmin     = "admin"
	RoleCouncilor = "councilor"
	RoleCitizen   = "citizen"
)

// Proposal kinds
const (
	KindFunding = "funding"
	KindPolicy  = "policy"
	KindGeneral = "general"
)

// Proposal states
const (
	StateDraft     = "draft"
	StateVoting    = "voting"
	StateSucceeded = "succeeded"
	StateDefeated  = "defeated"
	StateCompleted = "completed"
)

// Vote choices
const (
	ChoiceYes     = "yes"
	ChoiceNo      = "no"
	ChoiceAbstain = "abstain"
)

// Transaction log kinds
const (
	TxCommunityCreated = "community_created"
	TxMemberJoined     = "member_joined"
	TxProposalCreated  = "proposal_created"
	TxDeposit          = "deposit"
	TxWithdrawal       = "withdrawal"
)

// Communities
type Community struct {
	ID                string `gorm:"primaryKey;size:36"`
	Name              string `gorm:"size:100;not null"`
	Description       string `gorm:"type:text"`
	TreasuryAddress   string `gorm:"size:64"`
	InviteCode        string `gorm:"size:20;uniqueIndex;not null"`
	QuorumPercent     int    `gorm:"not null;default:60"`
	VotingPeriodHours int    `gorm:"not null;default:72"`
	CreatedBy         string `gorm:"size:64;not null"` // principal address
	CreatedAt         time.Time
	Members           []Member   `gorm:"foreignKey:CommunityID"`
	Proposals         []Proposal `gorm:"foreignKey:CommunityID"`
}

// Community members. One row per (community, principal address).
type Member struct {
	ID          string `gorm:"primaryKey;size:36"`
	CommunityID string `gorm:"size:36;uniqueIndex:idx_community_address;not null"`
	Address     string `gorm:"size:64;uniqueIndex:idx_community_address;not null"`
	Email       string `gorm:"size:256"`
	Role        string `gorm:"size:20;not null;default:citizen"`
	JoinedAt    time.Time
	Community   Community `gorm:"foreignKey:CommunityID"`
}

// Proposals. Amount and RecipientAddress are set iff Kind = funding.
type Proposal struct {
	ID               string  `gorm:"primaryKey;size:36"`
	CommunityID      string  `gorm:"size:36;index;not null"`
	Title            string  `gorm:"size:200;not null"`
	Description      string  `gorm:"type:text"`
	Kind             string  `gorm:"size:20;not null;default:general"`
	Amount           float64 `gorm:"type:decimal(18,9)"`
	RecipientAddress string  `gorm:"size:64"`
	State            string  `gorm:"size:20;not null;default:draft"`
	CreatedBy        string  `gorm:"size:36;not null"` // member id
	CreatedAt        time.Time
	VotingEndsAt     *time.Time
	Community        Community `gorm:"foreignKey:CommunityID"`
	Votes            []Vote    `gorm:"foreignKey:ProposalID"`
	Comments         []Comment `gorm:"foreignKey:ProposalID"`
}

// Votes. The unique index is what makes casting an upsert: at most one
// current row per (proposal, member), a later cast overwrites the earlier.
type Vote struct {
	ID         string `gorm:"primaryKey;size:36"`
	ProposalID string `gorm:"size:36;uniqueIndex:idx_proposal_member;not null"`
	MemberID   string `gorm:"size:36;uniqueIndex:idx_proposal_member;not null"`
	Choice     string `gorm:"size:10;not null"`
	CastAt     time.Time
	Proposal   Proposal `gorm:"foreignKey:ProposalID"`
	Member     Member   `gorm:"foreignKey:MemberID"`
}

// Discussion comments, threaded by ParentID.
type Comment struct {
	ID         string  `gorm:"primaryKey;size:36"`
	ProposalID string  `gorm:"size:36;index;not null"`
	ParentID   *string `gorm:"size:36"`
	AuthorID   string  `gorm:"size:36;not null"`
	Body       string  `gorm:"type:text;not null"`
	CreatedAt  time.Time
	Proposal   Proposal   `gorm:"foreignKey:ProposalID"`
	Author     Member     `gorm:"foreignKey:AuthorID"`
	Reactions  []Reaction `gorm:"foreignKey:CommentID"`
}

// Comment reactions, one row per (comment, member, emoji).
type Reaction struct {
	ID        string `gorm:"primaryKey;size:36"`
	CommentID string `gorm:"size:36;uniqueIndex:idx_comment_member_emoji;not null"`
	MemberID  string `gorm:"size:36;uniqueIndex:idx_comment_member_emoji;not null"`
	Emoji     string `gorm:"size:16;uniqueIndex:idx_comment_member_emoji;not null"`
	CreatedAt time.Time
	Comment   Comment `gorm:"foreignKey:CommentID"`
}

// Transaction log. Append-only, never updated or deleted.
type Transaction struct {
	ID          string  `gorm:"primaryKey;size:36"`
	CommunityID string  `gorm:"size:36;index;not null"`
	ProposalID  *string `gorm:"size:36"`
	Kind        string  `gorm:"size:30;not null"`
	Amount      float64 `gorm:"type:decimal(18,9)"`
	Signature   string  `gorm:"size:128;not null"` // external settlement reference
	Description string  `gorm:"type:text"`
	CreatedAt   time.Time
	Community   Community `gorm:"foreignKey:CommunityID"`
}
