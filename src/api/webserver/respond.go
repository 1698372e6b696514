package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0xSardius/dalaran/src/api/governance"
)

// fail maps a governance error to its HTTP status. Insufficient-funds
// responses carry both balances so the operator can see the shortfall.
func fail(c *gin.Context, err error) {
	var insufficient *governance.InsufficientFundsError
	var settlement *governance.SettlementError

	switch {
	case errors.Is(err, governance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.Is(err, governance.ErrNotMember), errors.Is(err, governance.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, governance.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case errors.Is(err, governance.ErrVotingClosed), errors.Is(err, governance.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"err":              insufficient.Error(),
			"treasuryLamports": insufficient.TreasuryLamports,
			"fallbackLamports": insufficient.FallbackLamports,
			"needLamports":     insufficient.NeedLamports,
		})
	case errors.As(err, &settlement):
		c.JSON(http.StatusBadGateway, gin.H{"err": settlement.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}
