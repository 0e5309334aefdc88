package refresh

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	"github.com/mcofie/itinero-web-sub003/internal/observability/metrics"
)

// Config tunes the refresh loop.
type Config struct {
	// PollInterval is how often the worker checks for a missing daily
	// snapshot. Refreshes are idempotent per calendar day, so polling
	// more often than daily only covers restarts and failed fetches.
	PollInterval time.Duration
	FetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Hour
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	return c
}

type Params struct {
	fx.In

	Service domain.Service
	Clock   clock.Clock
	Log     *zap.Logger
	Webhook *metrics.WebhookMetrics
	Cfg     config.Config
	Config  Config `optional:"true"`
}

// Worker keeps the current day's snapshot present for the configured
// base currency.
type Worker struct {
	svc     domain.Service
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.WebhookMetrics
	base    string
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		svc:     p.Service,
		clock:   p.Clock,
		log:     p.Log.Named("fxrate.refresh"),
		metrics: p.Webhook,
		base:    p.Cfg.FX.BaseCurrency,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("fx refresh run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FetchTimeout)
	defer cancel()

	fetched, err := w.svc.RefreshIfMissing(ctx, w.base, w.clock.Now())
	switch {
	case err != nil:
		w.metrics.ObserveFXRefresh("error")
		return err
	case fetched:
		w.metrics.ObserveFXRefresh("fetched")
	default:
		w.metrics.ObserveFXRefresh("skipped")
	}
	return nil
}
