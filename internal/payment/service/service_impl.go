package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mcofie/itinero-web-sub003/internal/audit/domain"
	auditservice "github.com/mcofie/itinero-web-sub003/internal/audit/service"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/events"
	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	"github.com/mcofie/itinero-web-sub003/internal/observability/metrics"
	"github.com/mcofie/itinero-web-sub003/internal/payment/adapters"
	"github.com/mcofie/itinero-web-sub003/internal/payment/domain"
	quotedomain "github.com/mcofie/itinero-web-sub003/internal/quote/domain"
)

type service struct {
	db       *gorm.DB
	registry *adapters.Registry
	quotes   quotedomain.Service
	ledger   ledgerdomain.Service
	outbox   *events.Outbox
	audit    *auditservice.Recorder
	webhook  *metrics.WebhookMetrics
	clock    clock.Clock
	cfg      config.PaystackConfig
	log      *zap.Logger
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Registry *adapters.Registry
	Quotes   quotedomain.Service
	Ledger   ledgerdomain.Service
	Outbox   *events.Outbox
	Audit    *auditservice.Recorder
	Webhook  *metrics.WebhookMetrics
	Clock    clock.Clock
	Cfg      config.Config
	Log      *zap.Logger
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		registry: p.Registry,
		quotes:   p.Quotes,
		ledger:   p.Ledger,
		outbox:   p.Outbox,
		audit:    p.Audit,
		webhook:  p.Webhook,
		clock:    p.Clock,
		cfg:      p.Cfg.Paystack,
		log:      p.Log.Named("payment"),
	}
}

// Initiate validates quote ownership and state, then opens a provider
// checkout carrying the quote id in metadata so the webhook can settle
// the right quote later.
func (s *service) Initiate(ctx context.Context, userID string, quoteID snowflake.ID, email string) (*domain.InitiateResponse, error) {
	adapter, ok := s.registry.Get("paystack")
	if !ok {
		return nil, domain.ErrProviderNotFound
	}

	quote, err := s.quotes.Get(ctx, quoteID, userID)
	if err != nil {
		return nil, err
	}
	if quote.Status == quotedomain.QuoteStatusPaid {
		return nil, quotedomain.ErrAlreadyPaid
	}
	if quote.Expired(s.clock.Now()) {
		return nil, quotedomain.ErrExpired
	}

	resp, err := adapter.Initiate(ctx, domain.InitiateRequest{
		Email:       strings.TrimSpace(email),
		AmountMinor: quote.AmountMinor,
		Currency:    quote.Currency,
		CallbackURL: s.callbackURL(quote.ID),
		Metadata: map[string]any{
			"quote_id": quote.ID.String(),
			"points":   quote.Points,
			"purpose":  "points_topup",
		},
	})
	if err != nil {
		return nil, err
	}

	s.audit.Write(ctx, auditservice.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID,
		Action:     auditdomain.ActionQuoteCreated,
		TargetType: "quote",
		TargetID:   quote.ID.String(),
		Metadata: map[string]any{
			"provider":     adapter.Provider(),
			"amount_minor": quote.AmountMinor,
			"currency":     quote.Currency,
			"reference":    resp.Reference,
		},
	})

	return resp, nil
}

func (s *service) callbackURL(quoteID snowflake.ID) string {
	base := strings.TrimRight(s.cfg.CallbackBaseURL, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/rewards/verify?quote_id=%s", base, quoteID.String())
}

// IngestWebhook settles one provider delivery. Signature failures,
// unrecognized events and replays all return an outcome with a nil
// error so the handler acknowledges them and the provider stops
// redelivering. Only transient storage failures return a non-nil error.
func (s *service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (domain.WebhookOutcome, error) {
	adapter, ok := s.registry.Get(provider)
	if !ok {
		return domain.OutcomeIgnored, nil
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.recordDelivery(ctx, adapter.Provider(), metrics.WebhookOutcomeBadSignature, auditdomain.ActionWebhookRejected, "", map[string]any{
			"reason": "invalid_signature",
		})
		return domain.OutcomeBadSignature, nil
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.recordDelivery(ctx, adapter.Provider(), metrics.WebhookOutcomeIgnored, auditdomain.ActionWebhookAccepted, "", map[string]any{
				"reason": "event_ignored",
			})
			return domain.OutcomeIgnored, nil
		}
		s.log.Warn("webhook payload rejected", zap.String("provider", adapter.Provider()), zap.Error(err))
		s.recordDelivery(ctx, adapter.Provider(), metrics.WebhookOutcomeIgnored, auditdomain.ActionWebhookRejected, "", map[string]any{
			"reason": err.Error(),
		})
		return domain.OutcomeIgnored, nil
	}

	quoteID, err := parseQuoteID(event.QuoteID)
	if err != nil {
		s.recordDelivery(ctx, event.Provider, metrics.WebhookOutcomeIgnored, auditdomain.ActionWebhookAccepted, event.Reference, map[string]any{
			"reason": "missing_quote_id",
		})
		return domain.OutcomeIgnored, nil
	}

	outcome, err := s.settle(ctx, event, quoteID)
	if err != nil {
		s.webhook.ObserveDelivery(event.Provider, metrics.WebhookOutcomeError)
		return outcome, err
	}

	switch outcome {
	case domain.OutcomeCredited:
		s.recordDelivery(ctx, event.Provider, metrics.WebhookOutcomeCredited, auditdomain.ActionPointsCredited, event.Reference, map[string]any{
			"quote_id":     event.QuoteID,
			"amount_minor": event.AmountMinor,
			"currency":     event.Currency,
		})
	case domain.OutcomeDuplicate:
		s.recordDelivery(ctx, event.Provider, metrics.WebhookOutcomeDuplicate, auditdomain.ActionWebhookAccepted, event.Reference, map[string]any{
			"reason": "duplicate_delivery",
		})
	default:
		s.recordDelivery(ctx, event.Provider, metrics.WebhookOutcomeIgnored, auditdomain.ActionWebhookAccepted, event.Reference, nil)
	}
	return outcome, nil
}

// settle applies the quote transition, the ledger credit and the outbox
// event in one transaction. The paid-status check is the double-credit
// gate; the guarded update and the ledger's unique reference pair catch
// deliveries that race past it.
func (s *service) settle(ctx context.Context, event *domain.PaymentEvent, quoteID snowflake.ID) (domain.WebhookOutcome, error) {
	outcome := domain.OutcomeCredited

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.quotes.Load(ctx, tx, quoteID)
		if err != nil {
			if errors.Is(err, quotedomain.ErrNotFound) {
				outcome = domain.OutcomeIgnored
				return nil
			}
			return err
		}
		if quote.Status == quotedomain.QuoteStatusPaid {
			// A paid quote never credits again, even when the provider
			// reference differs (one reference per checkout attempt).
			outcome = domain.OutcomeDuplicate
			return nil
		}

		if err := s.quotes.MarkPaidTx(ctx, tx, quote.ID); err != nil {
			// A concurrent delivery won the guarded update between the
			// status read and the write.
			if errors.Is(err, quotedomain.ErrAlreadyPaid) {
				outcome = domain.OutcomeDuplicate
				return nil
			}
			return err
		}

		_, err = s.ledger.AppendTx(ctx, tx, ledgerdomain.NewEntry{
			UserID:  quote.UserID,
			Delta:   quote.Points,
			Reason:  ledgerdomain.ReasonPaystackTopup,
			RefType: ledgerdomain.RefTypePaystack,
			RefID:   event.Reference,
			Meta: map[string]any{
				"quote_id":     quote.ID.String(),
				"amount_minor": event.AmountMinor,
				"currency":     event.Currency,
			},
		})
		if err != nil {
			if errors.Is(err, ledgerdomain.ErrDuplicateReference) {
				outcome = domain.OutcomeDuplicate
				return nil
			}
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			UserID: quote.UserID,
			Type:   events.EventPointsCredited,
			Payload: events.PointsCreditedPayload{
				UserID:    quote.UserID,
				QuoteID:   quote.ID.String(),
				Reference: event.Reference,
				Points:    quote.Points,
			}.ToMap(),
			DedupeKey: fmt.Sprintf("%s:%s:%s", events.EventPointsCredited, event.Provider, event.Reference),
		})
	})
	if err != nil {
		return domain.OutcomeIgnored, err
	}
	return outcome, nil
}

func (s *service) recordDelivery(ctx context.Context, provider, metricOutcome, action, reference string, meta map[string]any) {
	s.webhook.ObserveDelivery(provider, metricOutcome)

	record := auditservice.Record{
		ActorType:  auditdomain.ActorTypeWebhook,
		ActorID:    provider,
		Action:     action,
		TargetType: "payment_reference",
		TargetID:   reference,
		Metadata:   meta,
	}
	s.audit.Write(ctx, record)
}

func parseQuoteID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidPayload
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidPayload
	}
	return snowflake.ID(parsed), nil
}
