package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xSardius/dalaran/src/api/governance"
	"github.com/0xSardius/dalaran/src/api/types"
)

type Communities struct{ db *gorm.DB }

func NewCommunities(db *gorm.DB) Communities { return Communities{db: db} }

// inviteCode derives a short shareable code.
func inviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (h Communities) Create(c *gin.Context) {
	var req struct {
		Name              string `json:"name" binding:"required,min=2,max=32"`
		Description       string `json:"description"`
		TreasuryAddress   string `json:"treasuryAddress"`
		QuorumPercent     int    `json:"quorumPercent"`
		VotingPeriodHours int    `json:"votingPeriodHours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.QuorumPercent == 0 {
		req.QuorumPercent = 60
	}
	if req.QuorumPercent < 0 || req.QuorumPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "quorumPercent must be 0-100"})
		return
	}
	if req.VotingPeriodHours <= 0 {
		req.VotingPeriodHours = 72
	}
	if req.TreasuryAddress != "" {
		if err := governance.ValidateAddress(req.TreasuryAddress); err != nil {
			fail(c, err)
			return
		}
	}

	addr := c.GetString("addr")
	now := time.Now()
	community := types.Community{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Description:       req.Description,
		TreasuryAddress:   req.TreasuryAddress,
		InviteCode:        inviteCode(),
		QuorumPercent:     req.QuorumPercent,
		VotingPeriodHours: req.VotingPeriodHours,
		CreatedBy:         addr,
		CreatedAt:         now,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&community).Error; err != nil {
			return err
		}
		// Founder joins as admin.
		if err := tx.Create(&types.Member{
			ID:          uuid.NewString(),
			CommunityID: community.ID,
			Address:     addr,
			Role:        types.RoleAdmin,
			JoinedAt:    now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&types.Transaction{
			ID:          uuid.NewString(),
			CommunityID: community.ID,
			Kind:        types.TxCommunityCreated,
			Signature:   "community-" + community.ID,
			Description: "Created community: " + community.Name,
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"communityId": community.ID,
		"inviteCode":  community.InviteCode,
	})
}

func (h Communities) Join(c *gin.Context) {
	var req struct {
		InviteCode string `json:"inviteCode" binding:"required"`
		Email      string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var community types.Community
	if err := h.db.First(&community, "invite_code = ?", req.InviteCode).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "invalid invite code"})
		return
	}

	addr := c.GetString("addr")
	var existing types.Member
	err := h.db.First(&existing, "community_id = ? AND address = ?", community.ID, addr).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"communityId": community.ID, "memberId": existing.ID})
		return
	}

	now := time.Now()
	member := types.Member{
		ID:          uuid.NewString(),
		CommunityID: community.ID,
		Address:     addr,
		Email:       req.Email,
		Role:        types.RoleCitizen,
		JoinedAt:    now,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Create(&types.Transaction{
			ID:          uuid.NewString(),
			CommunityID: community.ID,
			Kind:        types.TxMemberJoined,
			Signature:   "member-" + member.ID,
			Description: "Member joined: " + addr,
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"communityId": community.ID, "memberId": member.ID})
}

func (h Communities) Get(c *gin.Context) {
	var community types.Community
	err := h.db.Preload("Members").First(&community, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "community not found"})
		return
	}
	c.JSON(http.StatusOK, community)
}
