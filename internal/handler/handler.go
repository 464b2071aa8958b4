package handler

import (
	"context"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SentimentFetcher interface {
	FetchSentiment(ctx context.Context, ticker domain.Ticker) (*domain.SentimentResult, error)
}

type PaymentHistory interface {
	RecentPayments(ctx context.Context, limit int) ([]domain.PaymentReceipt, error)
}

type Handler struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	sentiment SentimentFetcher
	payments  PaymentHistory
}

func New(tracer trace.Tracer, logger *zap.Logger, sentiment SentimentFetcher) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracer:    tracer,
		logger:    logger.Named("handler"),
		sentiment: sentiment,
	}
}

// SetPaymentHistory enables GET /api/payments.
func (h *Handler) SetPaymentHistory(p PaymentHistory) {
	h.payments = p
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/sentiment/:ticker", h.GetSentiment)
	api.GET("/payments", h.ListPayments)
}
