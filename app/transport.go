package app

import (
	"net/http"

	"github.com/dzmitryk/discountwatch/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewTransport(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) http.RoundTripper {
	return &transport{base: http.DefaultTransport, cfg: cfg, log: log}
}

// transport decorates outbound requests with browser-like headers. Several
// of the retailer sites serve stripped-down markup to unknown agents.
type transport struct {
	base http.RoundTripper
	cfg  *config.Config
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", tpt.cfg.Scrape.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	}
	return tpt.base.RoundTrip(req)
}
