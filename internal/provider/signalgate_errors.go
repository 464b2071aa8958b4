package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
)

// ErrRequest matches every error returned by SignalGateProvider.FetchSentiment.
var ErrRequest = errors.New("signalgate request failed")

// Leg identifies which of the (at most) two requests failed.
type Leg string

const (
	LegInitial Leg = "initial"
	LegPaid    Leg = "paid"
)

type TimeoutError struct {
	Leg     Leg
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("signalgate %s request timed out after %s", e.Leg, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrRequest }

// UpstreamError is a non-2xx, non-402 answer to the initial request.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("signalgate API error %d: %s", e.StatusCode, e.Status)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrRequest }

// PaymentRejectedError is a non-2xx answer to the retry carrying X-Payment.
type PaymentRejectedError struct {
	StatusCode int
	Body       string
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment failed or rejected: %d", e.StatusCode)
}

func (e *PaymentRejectedError) Is(target error) bool { return target == ErrRequest }

// PaymentRequiredError is returned instead of paying when the provider runs
// with PaymentPolicySurface.
type PaymentRequiredError struct {
	Details domain.PaymentDetails
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required: pay %s %s on %s to %s",
		orUnset(string(e.Details.Amount)), orUnset(e.Details.Currency), orUnset(e.Details.Network), e.Details.PayTo)
}

func (e *PaymentRequiredError) Is(target error) bool { return target == ErrRequest }

type ParseError struct {
	Leg Leg
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse signalgate %s response: %v", e.Leg, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrRequest }

// NetworkError wraps transport failures other than the attempt timeout,
// including cancellation of the caller's context.
type NetworkError struct {
	Leg Leg
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("signalgate %s request: %v", e.Leg, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrRequest }

func orUnset(s string) string {
	if s == "" {
		return "<unset>"
	}
	return s
}
