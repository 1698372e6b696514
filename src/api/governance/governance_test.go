package governance

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/0xSardius/dalaran/src/api/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.Community{}, &types.Member{}, &types.Proposal{},
		&types.Vote{}, &types.Comment{}, &types.Reaction{}, &types.Transaction{},
	))
	return db
}

// testAddr returns a valid base58 address for a 32-byte key filled with b.
func testAddr(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

func seedCommunity(t *testing.T, db *gorm.DB, quorumPercent, memberCount int) (types.Community, []types.Member) {
	t.Helper()
	community := types.Community{
		ID:                uuid.NewString(),
		Name:              "Kirin Tor",
		TreasuryAddress:   testAddr(200),
		InviteCode:        uuid.NewString()[:10],
		QuorumPercent:     quorumPercent,
		VotingPeriodHours: 72,
		CreatedBy:         testAddr(1),
		CreatedAt:         time.Now(),
	}
	require.NoError(t, db.Create(&community).Error)

	members := make([]types.Member, 0, memberCount)
	for i := 0; i < memberCount; i++ {
		role := types.RoleCitizen
		if i == 0 {
			role = types.RoleAdmin
		}
		m := types.Member{
			ID:          uuid.NewString(),
			CommunityID: community.ID,
			Address:     testAddr(byte(i + 1)),
			Role:        role,
			JoinedAt:    time.Now(),
		}
		require.NoError(t, db.Create(&m).Error)
		members = append(members, m)
	}
	return community, members
}

func seedProposal(t *testing.T, db *gorm.DB, community types.Community, creator types.Member, kind, state string, endsAt time.Time) types.Proposal {
	t.Helper()
	p := types.Proposal{
		ID:          uuid.NewString(),
		CommunityID: community.ID,
		Title:       "Fund the portal network",
		Kind:        kind,
		State:       state,
		CreatedBy:   creator.ID,
		CreatedAt:   time.Now(),
	}
	if kind == types.KindFunding {
		p.Amount = 2.0
		p.RecipientAddress = testAddr(99)
	}
	if !endsAt.IsZero() {
		p.VotingEndsAt = &endsAt
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func castRaw(t *testing.T, db *gorm.DB, proposalID, memberID, choice string) {
	t.Helper()
	require.NoError(t, db.Create(&types.Vote{
		ID:         uuid.NewString(),
		ProposalID: proposalID,
		MemberID:   memberID,
		Choice:     choice,
		CastAt:     time.Now(),
	}).Error)
}
