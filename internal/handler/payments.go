package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPaymentsLimit = 20
	maxPaymentsLimit     = 100
)

// ListPayments godoc
// @Summary      List recent x402 payments
// @Description  Returns the newest payment receipts from the ledger, accepted and rejected
// @Tags         payments
// @Produce      json
// @Param        limit  query  int  false  "Number of receipts (default 20, max 100)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-payments")
	defer span.End()

	if h.payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment ledger disabled"})
		return
	}

	limit := defaultPaymentsLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxPaymentsLimit {
			limit = n
		}
	}
	span.SetAttributes(attribute.Int("limit", limit))

	receipts, err := h.payments.RecentPayments(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(receipts),
		"payments": receipts,
	})
}
