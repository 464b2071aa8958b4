// Package x402 builds the X-Payment header sent back to a server that answered
// 402 Payment Required.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
)

const HeaderName = "X-Payment"

const (
	DefaultAmount   = "0.05"
	DefaultCurrency = "USDC"
	DefaultNetwork  = "base"
)

// Terms are the amount, currency and network used when the server leaves
// them out of its payment details.
type Terms struct {
	Amount   string
	Currency string
	Network  string
}

func DefaultTerms() Terms {
	return Terms{Amount: DefaultAmount, Currency: DefaultCurrency, Network: DefaultNetwork}
}

// WithDefaults fills empty fields of t from DefaultTerms.
func (t Terms) WithDefaults() Terms {
	d := DefaultTerms()
	if t.Amount == "" {
		t.Amount = d.Amount
	}
	if t.Currency == "" {
		t.Currency = d.Currency
	}
	if t.Network == "" {
		t.Network = d.Network
	}
	return t
}

// NewToken builds a token from the server's details. Server-provided amount,
// currency and network win; missing ones come from terms. PayTo and Nonce are
// copied verbatim.
func NewToken(details domain.PaymentDetails, terms Terms) domain.PaymentToken {
	tok := domain.PaymentToken{
		PayTo:    details.PayTo,
		Amount:   string(details.Amount),
		Currency: details.Currency,
		Network:  details.Network,
		Nonce:    string(details.Nonce),
	}
	if tok.Amount == "" {
		tok.Amount = terms.Amount
	}
	if tok.Currency == "" {
		tok.Currency = terms.Currency
	}
	if tok.Network == "" {
		tok.Network = terms.Network
	}
	return tok
}

// Encode returns base64(json(token)) using the standard alphabet with padding.
func Encode(tok domain.PaymentToken) (string, error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("marshal payment token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func Decode(header string) (domain.PaymentToken, error) {
	var tok domain.PaymentToken
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return tok, fmt.Errorf("decode payment header: %w", err)
	}
	if err := json.Unmarshal(raw, &tok); err != nil {
		return tok, fmt.Errorf("parse payment token: %w", err)
	}
	return tok, nil
}
