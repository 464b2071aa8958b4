package handler

import (
	"errors"
	"net/http"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/provider"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GetSentiment godoc
// @Summary      Get market sentiment for a crypto asset
// @Description  Queries SignalGate, paying the x402 fee when asked, and returns the verdict
// @Tags         sentiment
// @Produce      json
// @Param        ticker  path  string  true  "Asset ticker (BTC, ETH, SOL)"
// @Success      200  {object}  domain.SentimentResult
// @Failure      400  {object}  map[string]interface{}
// @Failure      402  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Failure      504  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /api/sentiment/{ticker} [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	ticker, err := domain.ParseTicker(c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             err.Error(),
			"supported_tickers": domain.SupportedTickerNames(),
		})
		return
	}
	span.SetAttributes(attribute.String("ticker", ticker.String()))

	result, err := h.sentiment.FetchSentiment(ctx, ticker)
	if err != nil {
		status, body := sentimentErrorResponse(err)
		h.logger.Warn("sentiment request failed",
			zap.String("ticker", ticker.String()),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, result)
}

func sentimentErrorResponse(err error) (int, gin.H) {
	var (
		timeout  *provider.TimeoutError
		upstream *provider.UpstreamError
		rejected *provider.PaymentRejectedError
		required *provider.PaymentRequiredError
	)
	switch {
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, gin.H{"error": err.Error(), "leg": timeout.Leg}
	case errors.As(err, &upstream):
		return http.StatusBadGateway, gin.H{"error": err.Error(), "upstream_status": upstream.StatusCode}
	case errors.As(err, &rejected):
		return http.StatusPaymentRequired, gin.H{"error": err.Error(), "upstream_status": rejected.StatusCode}
	case errors.As(err, &required):
		return http.StatusPaymentRequired, gin.H{"error": err.Error(), "payment": required.Details}
	default:
		return http.StatusBadGateway, gin.H{"error": err.Error()}
	}
}
