package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/facehub/backend/internal/votes"
)

type AdminHandler struct {
	ledger *votes.Ledger
}

func NewAdminHandler(ledger *votes.Ledger) *AdminHandler {
	return &AdminHandler{ledger: ledger}
}

// ReconcileVotes recomputes all vote counters and karma from the vote table.
// Operator-only; idempotent, safe to run at any time.
func (h *AdminHandler) ReconcileVotes(c *gin.Context) {
	stats, err := h.ledger.Reconcile()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation complete",
		"stats":   stats,
	})
}
