package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/domain"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/provider"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 30 * time.Second

type SentimentFetcher interface {
	FetchSentiment(ctx context.Context, ticker domain.Ticker) (*domain.SentimentResult, error)
}

var newBot = tele.NewBot

// StartTelegramBot starts long polling in the background and returns a stop
// function. Without a token it logs and returns a no-op stop.
func StartTelegramBot(token string, fetcher SentimentFetcher, logger *zap.Logger) (func(), error) {
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return func() {}, nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := newBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/sentiment", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(sentimentReply(ctx, fetcher, c.Args()))
	})

	logger.Info("Telegram bot started")
	go b.Start()
	return b.Stop, nil
}

func sentimentReply(ctx context.Context, fetcher SentimentFetcher, args []string) string {
	supported := strings.Join(domain.SupportedTickerNames(), ", ")
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /sentiment BTC\nSupported: %s", supported)
	}
	ticker, err := domain.ParseTicker(args[0])
	if err != nil {
		return fmt.Sprintf("Unknown ticker: %s\nSupported: %s", strings.ToUpper(args[0]), supported)
	}

	res, err := fetcher.FetchSentiment(ctx, ticker)
	if err != nil {
		var timeout *provider.TimeoutError
		if errors.As(err, &timeout) {
			return fmt.Sprintf("SignalGate did not answer in time for %s, try again shortly.", ticker)
		}
		return fmt.Sprintf("Error fetching sentiment for %s: %v", ticker, err)
	}

	msg := fmt.Sprintf(
		"%s sentiment: %s\nConfidence: %.0f%%\n%s",
		res.Ticker, strings.ToUpper(string(res.Signal)), res.Confidence*100, res.Reasoning,
	)
	if res.Timestamp != "" {
		msg += "\nAs of " + res.Timestamp
	}
	return msg
}
