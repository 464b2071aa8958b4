package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	paymentLedgerKey        = "signalgate:payments"
	defaultLedgerMaxEntries = 500
)

// LedgerClient is the subset of *redis.Client the ledger uses.
type LedgerClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// PaymentLedger keeps a capped, newest-first history of x402 payments in a
// Redis list.
type PaymentLedger struct {
	client     LedgerClient
	maxEntries int64
}

func NewPaymentLedger(client LedgerClient, maxEntries int) *PaymentLedger {
	if maxEntries <= 0 {
		maxEntries = defaultLedgerMaxEntries
	}
	return &PaymentLedger{client: client, maxEntries: int64(maxEntries)}
}

func (l *PaymentLedger) RecordPayment(ctx context.Context, receipt domain.PaymentReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	if err := l.client.LPush(ctx, paymentLedgerKey, data).Err(); err != nil {
		return fmt.Errorf("push receipt: %w", err)
	}
	if err := l.client.LTrim(ctx, paymentLedgerKey, 0, l.maxEntries-1).Err(); err != nil {
		return fmt.Errorf("trim ledger: %w", err)
	}
	return nil
}

// RecentPayments returns up to limit receipts, newest first. Entries that
// fail to decode are skipped.
func (l *PaymentLedger) RecentPayments(ctx context.Context, limit int) ([]domain.PaymentReceipt, error) {
	if limit <= 0 {
		return []domain.PaymentReceipt{}, nil
	}
	raw, err := l.client.LRange(ctx, paymentLedgerKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	receipts := make([]domain.PaymentReceipt, 0, len(raw))
	for _, item := range raw {
		var r domain.PaymentReceipt
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}
