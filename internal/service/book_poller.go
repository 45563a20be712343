package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Publisher delivers payloads to subscribed websocket clients and reports
// which channels currently have subscribers.
type Publisher interface {
	Publish(channel string, payload []byte)
	ActiveChannels(prefix string) []string
}

const bookChannelPrefix = "book:"

// BookPoller refreshes orderbooks for every token with at least one live
// websocket subscriber and pushes the snapshots out. Tokens nobody watches
// cost nothing.
type BookPoller struct {
	tokens   *TokenService
	hub      Publisher
	interval time.Duration
	logger   *slog.Logger
}

// NewBookPoller creates a BookPoller. interval defaults to 3 seconds when
// not positive.
func NewBookPoller(tokens *TokenService, hub Publisher, interval time.Duration, logger *slog.Logger) *BookPoller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &BookPoller{tokens: tokens, hub: hub, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (p *BookPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.InfoContext(ctx, "book_poller: started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "book_poller: stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *BookPoller) tick(ctx context.Context) {
	for _, channel := range p.hub.ActiveChannels(bookChannelPrefix) {
		tokenID := strings.TrimPrefix(channel, bookChannelPrefix)

		book, err := p.tokens.Orderbook(ctx, tokenID)
		if err != nil {
			p.logger.WarnContext(ctx, "book_poller: refresh failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
			continue
		}

		payload, err := json.Marshal(book)
		if err != nil {
			p.logger.WarnContext(ctx, "book_poller: marshal failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.hub.Publish(channel, payload)
	}
}
