package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/0xSardius/dalaran/src/api/data"
	"github.com/0xSardius/dalaran/src/api/governance"
	"github.com/0xSardius/dalaran/src/api/types"
)

type Comments struct {
	db        *gorm.DB
	rdb       *redis.Client
	members   governance.Members
	sanitizer *bluemonday.Policy
}

func NewComments(db *gorm.DB, rdb *redis.Client) Comments {
	// Strict policy: comment bodies are plain text, rendered client-side.
	return Comments{
		db:        db,
		rdb:       rdb,
		members:   governance.NewMembers(db),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (h Comments) Create(c *gin.Context) {
	var req struct {
		ProposalID string  `json:"proposalId" binding:"required"`
		ParentID   *string `json:"parentId"`
		Body       string  `json:"body" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var proposal types.Proposal
	if err := h.db.First(&proposal, "id = ?", req.ProposalID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "proposal not found"})
		return
	}

	member, err := h.members.ResolveMember(c, proposal.CommunityID, c.GetString("addr"))
	if err != nil {
		fail(c, err)
		return
	}

	if req.ParentID != nil {
		var parent types.Comment
		if err := h.db.First(&parent, "id = ? AND proposal_id = ?", *req.ParentID, req.ProposalID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "parent comment not found"})
			return
		}
	}

	body := h.sanitizer.Sanitize(req.Body)
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "empty comment"})
		return
	}

	comment := types.Comment{
		ID:         uuid.NewString(),
		ProposalID: req.ProposalID,
		ParentID:   req.ParentID,
		AuthorID:   member.ID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if err := h.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	_ = data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"event":    "comment_posted",
		"proposal": req.ProposalID,
		"comment":  comment.ID,
		"author":   member.Address,
	})

	c.JSON(http.StatusCreated, gin.H{"id": comment.ID})
}

func (h Comments) List(c *gin.Context) {
	var comments []types.Comment
	err := h.db.Preload("Reactions").
		Where("proposal_id = ?", c.Param("id")).
		Order("created_at asc").Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// React toggles the caller's emoji reaction on a comment.
func (h Comments) React(c *gin.Context) {
	var req struct {
		Emoji string `json:"emoji" binding:"required,max=16"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var comment types.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "comment not found"})
		return
	}
	var proposal types.Proposal
	if err := h.db.First(&proposal, "id = ?", comment.ProposalID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	member, err := h.members.ResolveMember(c, proposal.CommunityID, c.GetString("addr"))
	if err != nil {
		fail(c, err)
		return
	}

	var existing types.Reaction
	err = h.db.First(&existing,
		"comment_id = ? AND member_id = ? AND emoji = ?", comment.ID, member.ID, req.Emoji).Error
	if err == nil {
		h.db.Delete(&existing)
		c.JSON(http.StatusOK, gin.H{"reacted": false})
		return
	}

	reaction := types.Reaction{
		ID:        uuid.NewString(),
		CommentID: comment.ID,
		MemberID:  member.ID,
		Emoji:     req.Emoji,
		CreatedAt: time.Now(),
	}
	if err := h.db.Create(&reaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reacted": true})
}
