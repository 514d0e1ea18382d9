// Package collector drives the daily scrape cycle: fan sources out over a
// bounded worker pool, reconcile what they yield, expire stale rows, then
// notify.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib/metrics"
	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/dzmitryk/discountwatch/lib/reconcile"
	"github.com/dzmitryk/discountwatch/lib/sources"
	"github.com/dzmitryk/discountwatch/senders"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a trigger arrives while the previous run
// is still going. The trigger is dropped, never queued.
var ErrRunInProgress = errors.New("collection run already in progress")

// Notifier pushes a category digest to subscribers after a run that created
// new discounts in that category.
type Notifier interface {
	BroadcastDigest(ctx context.Context, category models.Category, created int) error
}

type Collector struct {
	log      *zap.Logger
	registry *sources.Registry
	engine   *sources.Engine
	rec      *reconcile.Reconciler
	notifier Notifier
	senders  senders.Registry
	metrics  *metrics.RunMetrics

	concurrency int
	reportTo    string
	clock       *dailyClock

	mu sync.Mutex
}

func NewCollector(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	registry *sources.Registry,
	engine *sources.Engine,
	rec *reconcile.Reconciler,
	notifier Notifier,
	senderRegistry senders.Registry,
	m *metrics.RunMetrics,
) *Collector {
	c := &Collector{
		log:         log,
		registry:    registry,
		engine:      engine,
		rec:         rec,
		notifier:    notifier,
		senders:     senderRegistry,
		metrics:     m,
		concurrency: cfg.Scrape.Concurrency,
		reportTo:    cfg.Mailgun.ReportTo,
		clock:       newDailyClock(cfg.Scrape.Hour, cfg.Scrape.Minute),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go c.loop()
			log.Sugar().Infow("Collector started",
				"sources", len(registry.All()),
				"concurrency", c.concurrency,
				"daily_at", fmt.Sprintf("%02d:%02d", cfg.Scrape.Hour, cfg.Scrape.Minute),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c.clock.Stop()
			return nil
		},
	})
	return c
}

func (c *Collector) loop() {
	for range c.clock.Start(context.Background()) {
		if _, err := c.RunOnce(context.Background()); err != nil && !errors.Is(err, ErrRunInProgress) {
			c.log.Sugar().Errorw("Collection run failed", "err", err)
		}
	}
}

// RunOnce executes a full collection cycle. Concurrent triggers are dropped
// with ErrRunInProgress rather than queued.
func (c *Collector) RunOnce(ctx context.Context) (*RunReport, error) {
	if !c.mu.TryLock() {
		c.metrics.RecordOverlapSkip()
		c.log.Sugar().Infow("Dropping collection trigger, previous run still in progress")
		return nil, ErrRunInProgress
	}
	defer c.mu.Unlock()

	if err := c.rec.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage unavailable: %w", err)
	}

	srcs := c.registry.All()
	report := newRunReport(uuid.NewString(), len(srcs))
	log := c.log.Sugar().With("run_id", report.RunID)
	log.Infow("Collection run started", "sources", len(srcs))

	var wg sync.WaitGroup
	var reportMu sync.Mutex
	pool := make(chan struct{}, c.concurrency)

	for _, src := range srcs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		pool <- struct{}{}
		go func(src sources.Source) {
			defer wg.Done()
			defer func() { <-pool }()

			out := c.collectSource(ctx, log, src)
			c.metrics.RecordSource(src.StoreName, out.saved, out.skipped, out.err != nil)

			reportMu.Lock()
			report.absorb(src, out)
			reportMu.Unlock()
		}(src)
	}
	wg.Wait()

	if expired, err := c.rec.ExpireStale(ctx); err != nil {
		log.Errorw("Failed to expire stale discounts", "err", err)
	} else {
		report.Expired = expired
		c.metrics.RecordExpired(expired)
	}

	report.Elapsed = time.Since(report.Started)
	c.metrics.RecordRun()
	log.Infow("Collection run finished",
		"elapsed", report.Elapsed,
		"saved", report.Saved,
		"created", report.Created,
		"updated", report.Updated,
		"skipped_cards", report.SkippedCards,
		"source_errors", report.SourceErrors,
		"expired", report.Expired,
	)

	c.notifySubscribers(ctx, log, report)
	c.emailReport(ctx, log, report)
	return report, nil
}

// collectSource is the per-source failure boundary: whatever goes wrong here
// is attributed to this source alone.
func (c *Collector) collectSource(ctx context.Context, log *zap.SugaredLogger, src sources.Source) sourceOutcome {
	var out sourceOutcome

	extraction, err := c.engine.Collect(ctx, src)
	if err != nil {
		out.err = err
		log.Warnw("Source failed", "store", src.StoreName, "err", err)
		return out
	}
	out.skipped = extraction.Skipped
	if len(extraction.Candidates) == 0 {
		return out
	}

	cities := models.CityAll
	if src.Geography.Mode == sources.GeoCityList {
		cities = models.JoinCities(src.Geography.Cities)
	}
	store, err := c.rec.GetOrCreateStore(ctx, src.StoreName, src.Category, src.Website, cities)
	if err != nil {
		out.err = err
		log.Warnw("Source failed", "store", src.StoreName, "err", err)
		return out
	}

	for _, cand := range extraction.Candidates {
		if ctx.Err() != nil {
			break
		}
		created, err := c.rec.Reconcile(ctx, store.ID, cand)
		if err != nil {
			out.candidateErrors++
			log.Warnw("Failed to save candidate", "store", src.StoreName, "title", cand.Title, "err", err)
			continue
		}
		out.saved++
		if created {
			out.created++
		} else {
			out.updated++
		}
	}
	return out
}

func (c *Collector) notifySubscribers(ctx context.Context, log *zap.SugaredLogger, report *RunReport) {
	if c.notifier == nil {
		return
	}
	for category, created := range report.NewByCategory {
		if err := c.notifier.BroadcastDigest(ctx, category, created); err != nil {
			log.Warnw("Digest broadcast failed", "category", category, "err", err)
		}
	}
}

func (c *Collector) emailReport(ctx context.Context, log *zap.SugaredLogger, report *RunReport) {
	if c.reportTo == "" {
		return
	}
	sender, ok := c.senders["email"]
	if !ok {
		return
	}
	subject, body := report.FormatEmail()
	if resp, err := sender.Send(ctx, subject, body, c.reportTo); err != nil {
		log.Warnw("Failed to email run report", "err", err)
	} else {
		log.Infow("Emailed run report", "recipient", c.reportTo, "response", resp)
	}
}
