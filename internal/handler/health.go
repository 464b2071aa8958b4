package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and whether the payment ledger is enabled
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	ledger := "disabled"
	if h.payments != nil {
		ledger = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "ledger": ledger})
}
