package main

import (
	"net/http"
	"os"
	"time"

	"github.com/dzmitryk/discountwatch/app"
	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib"
	"github.com/dzmitryk/discountwatch/lib/collector"
	"github.com/dzmitryk/discountwatch/lib/metrics"
	"github.com/dzmitryk/discountwatch/lib/reconcile"
	"github.com/dzmitryk/discountwatch/lib/sources"
	"github.com/dzmitryk/discountwatch/senders"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	godotenv.Load()

	fx.New(
		fx.Provide(NewLogger),
		fx.Provide(config.NewConfig),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),
		fx.Provide(senders.NewSenderRegistry),

		fx.Provide(sources.NewRegistry),
		fx.Provide(sources.NewEngine),
		fx.Provide(reconcile.NewReconciler),
		fx.Provide(metrics.NewRunMetrics),
		fx.Provide(lib.NewService),
		fx.Provide(func(svc *lib.Service) collector.Notifier { return svc }),
		fx.Provide(collector.NewCollector),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server, *collector.Collector) {}),
	).Run()
}
