package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts payment webhook deliveries by terminal outcome so
// silent drops (bad signatures, replays) stay visible to operators.
type WebhookMetrics struct {
	deliveries   *prometheus.CounterVec
	fxRefreshRun *prometheus.CounterVec
}

const (
	WebhookOutcomeCredited     = "credited"
	WebhookOutcomeDuplicate    = "duplicate"
	WebhookOutcomeBadSignature = "bad_signature"
	WebhookOutcomeIgnored      = "ignored"
	WebhookOutcomeError        = "error"
)

var (
	webhookMetricsOnce sync.Once
	webhookMetrics     *WebhookMetrics
)

func Webhook() *WebhookMetrics {
	return WebhookWithConfig(Config{})
}

func WebhookWithConfig(cfg Config) *WebhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookMetrics = newWebhookMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return webhookMetrics
}

func ResetWebhookMetricsForTest() {
	webhookMetricsOnce = sync.Once{}
	webhookMetrics = nil
}

func newWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "itinero"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	deliveries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "itinero_payment_webhook_deliveries_total",
			Help:        "Payment webhook deliveries by provider and terminal outcome.",
			ConstLabels: constLabels,
		},
		[]string{"provider", "outcome"},
	)

	fxRefreshRun := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "itinero_fx_refresh_runs_total",
			Help:        "FX snapshot refresh attempts by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // inserted | exists | error
	)

	for _, collector := range []prometheus.Collector{deliveries, fxRefreshRun} {
		if err := registerer.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch existing := already.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					switch collector {
					case deliveries:
						deliveries = existing
					case fxRefreshRun:
						fxRefreshRun = existing
					}
				}
				continue
			}
		}
	}

	return &WebhookMetrics{
		deliveries:   deliveries,
		fxRefreshRun: fxRefreshRun,
	}
}

func (m *WebhookMetrics) ObserveDelivery(provider, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(provider, outcome).Inc()
}

func (m *WebhookMetrics) ObserveFXRefresh(result string) {
	if m == nil || m.fxRefreshRun == nil {
		return
	}
	m.fxRefreshRun.WithLabelValues(result).Inc()
}
