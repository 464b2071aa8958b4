package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// LooseString decodes from either a JSON string or a JSON number. Numbers keep
// their literal text, so 0.05 becomes "0.05".
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*s = LooseString(n.String())
	return nil
}

// PaymentDetails is the body of a 402 response. Amount, Currency and Network
// are optional; an empty value means the server did not specify one.
type PaymentDetails struct {
	PayTo    string      `json:"payTo"`
	Amount   LooseString `json:"amount,omitempty"`
	Currency string      `json:"currency,omitempty"`
	Network  string      `json:"network,omitempty"`
	Nonce    LooseString `json:"nonce"`
}

// PaymentToken is the payload carried base64-encoded in the X-Payment header.
// Field order matters for the encoded form.
type PaymentToken struct {
	PayTo    string `json:"payTo"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Network  string `json:"network"`
	Nonce    string `json:"nonce"`
}

// PaymentReceipt records one paid retry, accepted or not.
type PaymentReceipt struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	PayTo      string    `json:"pay_to"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Network    string    `json:"network"`
	Nonce      string    `json:"nonce"`
	Accepted   bool      `json:"accepted"`
	StatusCode int       `json:"status_code"`
	PaidAt     time.Time `json:"paid_at"`
}
