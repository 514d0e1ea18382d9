// Package senders holds the outbound notification platforms. Platforms are
// registered by name so callers can pick a channel without knowing its
// transport.
package senders

import (
	"context"
	"net/http"

	"github.com/dzmitryk/discountwatch/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, subject, body, recipient string) (string, error)
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	registry := Registry{}

	if cfg.Mailgun.Domain != "" && cfg.Mailgun.APIKey != "" {
		registry["email"] = &mailgunSender{base}
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := newTelegramSender(base)
		if err != nil {
			log.Sugar().Warnw("Failed to start telegram sender", "err", err)
		} else {
			registry["telegram"] = tg
		}
	}

	if len(registry) == 0 {
		log.Sugar().Infow("No notification platforms configured, digests and reports are disabled")
	}
	return registry
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
