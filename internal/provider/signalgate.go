package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/x402"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	signalgateBaseURL     = "https://signalgate-web.vercel.app/api/sentiment-x402"
	signalgateTimeout     = 10 * time.Second
	signalgateMaxBody     = 1 << 20
	receiptRecordTimeout  = 3 * time.Second
	maxErrorBodyInMessage = 512
)

// PaymentPolicy decides what happens when the API answers 402.
type PaymentPolicy string

const (
	// PaymentPolicyPay builds an X-Payment token and retries once.
	PaymentPolicyPay PaymentPolicy = "pay"
	// PaymentPolicySurface returns PaymentRequiredError without paying.
	//
	// Deprecated: kept for hosts that settle payments themselves.
	PaymentPolicySurface PaymentPolicy = "surface"
)

func (p PaymentPolicy) IsValid() bool {
	return p == PaymentPolicyPay || p == PaymentPolicySurface
}

type SignalGateConfig struct {
	BaseURL string
	// Timeout bounds each HTTP attempt separately, body read included.
	Timeout time.Duration
	Terms   x402.Terms
	Policy  PaymentPolicy
}

func DefaultSignalGateConfig() SignalGateConfig {
	return SignalGateConfig{
		BaseURL: signalgateBaseURL,
		Timeout: signalgateTimeout,
		Terms:   x402.DefaultTerms(),
		Policy:  PaymentPolicyPay,
	}
}

// PaymentRecorder receives a receipt for every paid retry.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, receipt domain.PaymentReceipt) error
}

// SignalGateProvider queries the SignalGate sentiment API, paying through
// x402 when the API asks for it. It holds no per-call state and is safe for
// concurrent use.
type SignalGateProvider struct {
	client   *http.Client
	cfg      SignalGateConfig
	tracer   trace.Tracer
	logger   *zap.Logger
	recorder PaymentRecorder
	now      func() time.Time
}

func NewSignalGateProvider(cfg SignalGateConfig, tracer trace.Tracer, logger *zap.Logger) *SignalGateProvider {
	def := DefaultSignalGateConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if !cfg.Policy.IsValid() {
		cfg.Policy = def.Policy
	}
	cfg.Terms = cfg.Terms.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalGateProvider{
		client: &http.Client{},
		cfg:    cfg,
		tracer: tracer,
		logger: logger.Named("signalgate"),
		now:    time.Now,
	}
}

// SetPaymentRecorder enables receipts. A nil recorder disables them.
func (p *SignalGateProvider) SetPaymentRecorder(r PaymentRecorder) {
	p.recorder = r
}

func (p *SignalGateProvider) Config() SignalGateConfig {
	return p.cfg
}

// FetchSentiment returns the sentiment verdict for ticker. Every error it
// returns matches ErrRequest.
func (p *SignalGateProvider) FetchSentiment(ctx context.Context, ticker domain.Ticker) (*domain.SentimentResult, error) {
	ctx, span := p.tracer.Start(ctx, "signalgate.fetch-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker.String()))

	result, err := p.fetch(ctx, ticker)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (p *SignalGateProvider) fetch(ctx context.Context, ticker domain.Ticker) (*domain.SentimentResult, error) {
	if !ticker.IsValid() {
		return nil, fmt.Errorf("%w: unsupported ticker %q", ErrRequest, ticker)
	}

	target, err := p.sentimentURL(ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	resp, err := p.do(ctx, LegInitial, target, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return p.payAndFetch(ctx, ticker, target, resp.Body)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       truncate(string(resp.Body), maxErrorBodyInMessage),
		}
	}
	return decodeSentiment(LegInitial, resp.Body)
}

func (p *SignalGateProvider) payAndFetch(ctx context.Context, ticker domain.Ticker, target string, body []byte) (*domain.SentimentResult, error) {
	var details domain.PaymentDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, &ParseError{Leg: LegInitial, Err: fmt.Errorf("payment details: %w", err)}
	}

	if p.cfg.Policy == PaymentPolicySurface {
		return nil, &PaymentRequiredError{Details: details}
	}

	if strings.TrimSpace(details.PayTo) == "" {
		return nil, &ParseError{Leg: LegInitial, Err: errors.New("payment details missing payTo")}
	}
	if details.Nonce == "" {
		return nil, &ParseError{Leg: LegInitial, Err: errors.New("payment details missing nonce")}
	}

	tok := x402.NewToken(details, p.cfg.Terms)
	header, err := x402.Encode(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	p.logger.Info("paying for sentiment",
		zap.String("ticker", ticker.String()),
		zap.String("pay_to", tok.PayTo),
		zap.String("amount", tok.Amount),
		zap.String("currency", tok.Currency),
		zap.String("network", tok.Network),
	)

	resp, err := p.do(ctx, LegPaid, target, header)
	if err != nil {
		p.record(ctx, ticker, tok, 0)
		return nil, err
	}
	p.record(ctx, ticker, tok, resp.StatusCode)

	if !isSuccess(resp.StatusCode) {
		return nil, &PaymentRejectedError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(resp.Body), maxErrorBodyInMessage),
		}
	}
	return decodeSentiment(LegPaid, resp.Body)
}

type attemptResponse struct {
	StatusCode int
	Status     string
	Body       []byte
}

// do performs one GET bounded by cfg.Timeout. The body is read before the
// attempt context is released so a slow body also counts against the timeout.
func (p *SignalGateProvider) do(ctx context.Context, leg Leg, target, paymentHeader string) (*attemptResponse, error) {
	spanName := "signalgate.request"
	if leg == LegPaid {
		spanName = "signalgate.paid-request"
	}
	ctx, span := p.tracer.Start(ctx, spanName)
	defer span.End()

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{Leg: leg, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if paymentHeader != "" {
		req.Header.Set(x402.HeaderName, paymentHeader)
	}

	start := p.now()
	resp, err := p.client.Do(req)
	if err != nil {
		err = p.transportError(ctx, attemptCtx, leg, err)
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, signalgateMaxBody))
	if err != nil {
		err = p.transportError(ctx, attemptCtx, leg, err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	p.logger.Debug("signalgate response",
		zap.String("leg", string(leg)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", p.now().Sub(start)),
	)

	return &attemptResponse{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}, nil
}

func (p *SignalGateProvider) transportError(parent, attemptCtx context.Context, leg Leg, err error) error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Leg: leg, Timeout: p.cfg.Timeout}
	}
	var netErr net.Error
	if parent.Err() == nil && errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Leg: leg, Timeout: p.cfg.Timeout}
	}
	return &NetworkError{Leg: leg, Err: err}
}

func (p *SignalGateProvider) record(ctx context.Context, ticker domain.Ticker, tok domain.PaymentToken, status int) {
	if p.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptRecordTimeout)
	defer cancel()

	receipt := domain.PaymentReceipt{
		ID:         uuid.NewString(),
		Ticker:     ticker.String(),
		PayTo:      tok.PayTo,
		Amount:     tok.Amount,
		Currency:   tok.Currency,
		Network:    tok.Network,
		Nonce:      tok.Nonce,
		Accepted:   isSuccess(status),
		StatusCode: status,
		PaidAt:     p.now().UTC(),
	}
	if err := p.recorder.RecordPayment(recCtx, receipt); err != nil {
		p.logger.Warn("failed to record payment", zap.String("receipt_id", receipt.ID), zap.Error(err))
	}
}

func (p *SignalGateProvider) sentimentURL(ticker domain.Ticker) (string, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse signalgate url: %w", err)
	}
	q := u.Query()
	q.Set("ticker", ticker.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeSentiment(leg Leg, body []byte) (*domain.SentimentResult, error) {
	var result domain.SentimentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ParseError{Leg: leg, Err: err}
	}
	if err := result.Validate(); err != nil {
		return nil, &ParseError{Leg: leg, Err: err}
	}
	return &result, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusText(resp *attemptResponse) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
