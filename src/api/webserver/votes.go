package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/0xSardius/dalaran/src/api/data"
	"github.com/0xSardius/dalaran/src/api/governance"
)

type Votes struct {
	votes governance.Votes
	rdb   *redis.Client
}

func NewVotes(votes governance.Votes, rdb *redis.Client) Votes {
	return Votes{votes: votes, rdb: rdb}
}

// Cast records the caller's vote and returns the updated tally. Casting
// again replaces the earlier choice.
func (h Votes) Cast(c *gin.Context) {
	var req struct {
		ProposalID string `json:"proposalId" binding:"required"`
		Choice     string `json:"choice" binding:"required,oneof=yes no abstain"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	tally, err := h.votes.CastVote(c, req.ProposalID, c.GetString("addr"), req.Choice)
	if err != nil {
		fail(c, err)
		return
	}

	_ = data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"event":    "vote_cast",
		"proposal": req.ProposalID,
		"choice":   req.Choice,
	})

	c.JSON(http.StatusOK, tally)
}
