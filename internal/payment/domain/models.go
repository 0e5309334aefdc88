package domain

import "time"

const EventTypePaymentSucceeded = "payment_succeeded"

// PaymentEvent is a provider-neutral view of an authenticated webhook
// notification.
type PaymentEvent struct {
	Provider string
	Type     string
	// Reference is the provider's transaction reference and becomes the
	// ledger idempotency key.
	Reference   string
	AmountMinor int64
	Currency    string
	// QuoteID is the correlation id this service embedded in provider
	// metadata at initiation; empty when absent.
	QuoteID       string
	CustomerEmail string
	OccurredAt    time.Time
}

// InitiateRequest asks the provider to open a checkout session.
type InitiateRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

// InitiateResponse carries the provider's checkout handle back to the
// client.
type InitiateResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	AccessCode       string `json:"access_code,omitempty"`
}

// WebhookOutcome is the terminal state of one delivery. Every outcome
// except a transient storage failure is acknowledged to the provider.
type WebhookOutcome string

const (
	OutcomeCredited     WebhookOutcome = "credited"
	OutcomeDuplicate    WebhookOutcome = "duplicate"
	OutcomeIgnored      WebhookOutcome = "ignored"
	OutcomeBadSignature WebhookOutcome = "bad_signature"
)
