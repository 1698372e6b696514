package governance

import (
	"context"
	"errors"

	"github.com/0xSardius/dalaran/src/api/types"
	"gorm.io/gorm"
)

// Members resolves authenticated principals to member records. Every
// mutating operation goes through ResolveMember before touching the store.
type Members struct{ db *gorm.DB }

func NewMembers(db *gorm.DB) Members { return Members{db: db} }

// ResolveMember returns the member row for (community, principal address),
// or ErrNotMember. It never defaults a role.
func (m Members) ResolveMember(ctx context.Context, communityID, address string) (*types.Member, error) {
	var member types.Member
	err := m.db.WithContext(ctx).
		First(&member, "community_id = ? AND address = ?", communityID, address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// CountMembers returns the community's total membership, the denominator
// for quorum participation.
func (m Members) CountMembers(ctx context.Context, communityID string) (int64, error) {
	var n int64
	err := m.db.WithContext(ctx).Model(&types.Member{}).
		Where("community_id = ?", communityID).Count(&n).Error
	return n, err
}
