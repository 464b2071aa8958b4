package domain

import (
	"fmt"
	"strings"
)

type Ticker string

const (
	TickerBTC Ticker = "BTC"
	TickerETH Ticker = "ETH"
	TickerSOL Ticker = "SOL"
)

// SupportedTickers lists the assets the sentiment API covers, in display order.
var SupportedTickers = []Ticker{TickerBTC, TickerETH, TickerSOL}

// ParseTicker normalizes user input ("btc", " Eth ") into a supported Ticker.
func ParseTicker(s string) (Ticker, error) {
	t := Ticker(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unsupported ticker: %q", s)
	}
	return t, nil
}

func (t Ticker) IsValid() bool {
	for _, st := range SupportedTickers {
		if t == st {
			return true
		}
	}
	return false
}

func (t Ticker) String() string { return string(t) }

// SupportedTickerNames returns SupportedTickers as plain strings.
func SupportedTickerNames() []string {
	names := make([]string, len(SupportedTickers))
	for i, t := range SupportedTickers {
		names[i] = string(t)
	}
	return names
}

type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

var SupportedSignals = []Signal{SignalBullish, SignalBearish, SignalNeutral}

func (s Signal) IsValid() bool {
	switch s {
	case SignalBullish, SignalBearish, SignalNeutral:
		return true
	}
	return false
}

// SentimentResult is the verdict returned by the sentiment API for one ticker.
type SentimentResult struct {
	Ticker     string  `json:"ticker"`
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// Validate checks the enum and range constraints of a decoded result.
func (r *SentimentResult) Validate() error {
	if !r.Signal.IsValid() {
		return fmt.Errorf("invalid signal %q", r.Signal)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	return nil
}
