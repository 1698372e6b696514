package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"

	"github.com/0xSardius/dalaran/src/api/data"
	"github.com/0xSardius/dalaran/src/api/governance"
)

type Proposals struct {
	svc       governance.Proposals
	votes     governance.Votes
	members   governance.Members
	exec      governance.Executor
	rdb       *redis.Client
	sanitizer *bluemonday.Policy
}

func NewProposals(svc governance.Proposals, votes governance.Votes, members governance.Members,
	exec governance.Executor, rdb *redis.Client) Proposals {
	return Proposals{
		svc:       svc,
		votes:     votes,
		members:   members,
		exec:      exec,
		rdb:       rdb,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (h Proposals) Create(c *gin.Context) {
	var req struct {
		CommunityID      string  `json:"communityId" binding:"required"`
		Title            string  `json:"title" binding:"required"`
		Description      string  `json:"description"`
		Kind             string  `json:"kind"`
		Amount           float64 `json:"amount"`
		RecipientAddress string  `json:"recipientAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	proposal, err := h.svc.CreateProposal(c, req.CommunityID, c.GetString("addr"), governance.ProposalInput{
		Title:            h.sanitizer.Sanitize(req.Title),
		Description:      h.sanitizer.Sanitize(req.Description),
		Kind:             req.Kind,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
	})
	if err != nil {
		fail(c, err)
		return
	}

	_ = data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"event":     "proposal_created",
		"proposal":  proposal.ID,
		"community": proposal.CommunityID,
		"kind":      proposal.Kind,
		"title":     proposal.Title,
	})

	c.JSON(http.StatusCreated, gin.H{"proposalId": proposal.ID})
}

func (h Proposals) List(c *gin.Context) {
	proposals, err := h.svc.List(c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// Tally returns the proposal's standing. Reading the tally of an expired
// voting proposal finalizes it; see governance.Proposals.GetTally.
func (h Proposals) Tally(c *gin.Context) {
	proposalID := c.Param("id")

	result, err := h.svc.GetTally(c, proposalID)
	if err != nil {
		fail(c, err)
		return
	}

	// Include the caller's own vote when they are a member.
	var userVote string
	if proposal, err := h.svc.Get(c, proposalID); err == nil {
		if member, err := h.members.ResolveMember(c, proposal.CommunityID, c.GetString("addr")); err == nil {
			userVote, _ = h.votes.MemberVote(c, proposalID, member.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"yes":           result.Yes,
		"no":            result.No,
		"abstain":       result.Abstain,
		"total":         result.Total,
		"totalMembers":  result.TotalMembers,
		"quorumPercent": result.QuorumPercent,
		"quorumReached": result.QuorumReached,
		"state":         result.State,
		"userVote":      userVote,
	})
}

func (h Proposals) Execute(c *gin.Context) {
	result, err := h.exec.Execute(c, c.Param("id"), c.GetString("addr"))
	if err != nil {
		fail(c, err)
		return
	}

	_ = data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"event":     "proposal_executed",
		"proposal":  c.Param("id"),
		"signature": result.Signature,
	})

	c.JSON(http.StatusOK, result)
}
