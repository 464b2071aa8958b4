// Package skill exposes the SignalGate sentiment lookup as an agent tool.
package skill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/x402"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
)

const Name = "signalgate-sentiment"

// SentimentFetcher is implemented by provider.SignalGateProvider.
type SentimentFetcher interface {
	FetchSentiment(ctx context.Context, ticker domain.Ticker) (*domain.SentimentResult, error)
}

type Input struct {
	Ticker string `json:"ticker" jsonschema:"The crypto asset to get sentiment for"`
}

type Output struct {
	Ticker     string  `json:"ticker" jsonschema:"Ticker the verdict applies to"`
	Signal     string  `json:"signal" jsonschema:"Sentiment verdict"`
	Confidence float64 `json:"confidence" jsonschema:"Confidence in the verdict, 0 to 1"`
	Reasoning  string  `json:"reasoning" jsonschema:"Short explanation of the verdict"`
	Timestamp  string  `json:"timestamp,omitempty" jsonschema:"When the verdict was produced, if reported"`
}

type Skill struct {
	fetcher     SentimentFetcher
	description string
	timeout     time.Duration
	logger      *zap.Logger
}

// New wraps fetcher. terms only feed the human-readable description; the
// fetcher decides what is actually paid. A zero timeout leaves calls bounded
// by the fetcher alone.
func New(fetcher SentimentFetcher, terms x402.Terms, timeout time.Duration, logger *zap.Logger) *Skill {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Skill{
		fetcher:     fetcher,
		description: describe(terms.WithDefaults()),
		timeout:     timeout,
		logger:      logger.Named("skill"),
	}
}

func (s *Skill) Description() string { return s.description }

// Execute is the single entry point the host invokes. Fetcher errors are
// returned unchanged.
func (s *Skill) Execute(ctx context.Context, in Input) (Output, error) {
	ticker, err := domain.ParseTicker(in.Ticker)
	if err != nil {
		return Output{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.fetcher.FetchSentiment(ctx, ticker)
	if err != nil {
		s.logger.Warn("sentiment lookup failed", zap.String("ticker", ticker.String()), zap.Error(err))
		return Output{}, err
	}

	return Output{
		Ticker:     res.Ticker,
		Signal:     string(res.Signal),
		Confidence: res.Confidence,
		Reasoning:  res.Reasoning,
		Timestamp:  res.Timestamp,
	}, nil
}

// InputSchema is the schema inferred from Input with the ticker enum added.
func InputSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[Input](nil)
	if err != nil {
		return nil, fmt.Errorf("infer input schema: %w", err)
	}
	schema.Properties["ticker"].Enum = toAny(domain.SupportedTickerNames())
	return schema, nil
}

// OutputSchema is the schema inferred from Output with the signal enum and
// confidence bounds added.
func OutputSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[Output](nil)
	if err != nil {
		return nil, fmt.Errorf("infer output schema: %w", err)
	}
	signals := make([]string, len(domain.SupportedSignals))
	for i, sig := range domain.SupportedSignals {
		signals[i] = string(sig)
	}
	schema.Properties["signal"].Enum = toAny(signals)
	schema.Properties["confidence"].Minimum = float(0)
	schema.Properties["confidence"].Maximum = float(1)
	return schema, nil
}

func describe(t x402.Terms) string {
	return fmt.Sprintf(
		"Real-time AI-powered crypto market sentiment for %s. Returns bullish/bearish/neutral signal with confidence score and reasoning. Costs %s %s per call via x402 micropayment on %s, no API key needed.",
		joinTickers(), t.Amount, t.Currency, titleCase(t.Network),
	)
}

func joinTickers() string {
	names := domain.SupportedTickerNames()
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toAny(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func float(v float64) *float64 { return &v }
