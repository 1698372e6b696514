package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/0xSardius/dalaran/src/api/governance"
	"github.com/0xSardius/dalaran/src/api/types"
)

type Treasury struct {
	db     *gorm.DB
	ledger governance.Ledger
}

func NewTreasury(db *gorm.DB, ledger governance.Ledger) Treasury {
	return Treasury{db: db, ledger: ledger}
}

// Get reports the treasury balance and the community's transaction log.
// The balance is read from the external ledger; the log is the local
// audit trail of record.
func (h Treasury) Get(c *gin.Context) {
	var community types.Community
	if err := h.db.First(&community, "id = ?", c.Param("communityID")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "community not found"})
		return
	}

	var balance float64
	if community.TreasuryAddress != "" {
		lamports, err := h.ledger.GetBalance(c, community.TreasuryAddress)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
			return
		}
		balance = float64(lamports) / governance.LamportsPerToken
	}

	var transactions []types.Transaction
	h.db.Where("community_id = ?", community.ID).
		Order("created_at desc").Limit(50).Find(&transactions)

	c.JSON(http.StatusOK, gin.H{
		"treasuryAddress": community.TreasuryAddress,
		"balance":         balance,
		"transactions":    transactions,
	})
}
