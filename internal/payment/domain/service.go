package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// Service drives the payment lifecycle: initiation against the
// provider, and idempotent settlement of its webhook notifications.
type Service interface {
	// Initiate opens a provider checkout for a pending quote owned by
	// the caller.
	Initiate(ctx context.Context, userID string, quoteID snowflake.ID, email string) (*InitiateResponse, error)
	// IngestWebhook authenticates and applies one delivery. A non-nil
	// error means transient failure and the provider should redeliver;
	// every returned outcome is a terminal acknowledgement.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (WebhookOutcome, error)
}

var (
	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrProviderNotFound    = errors.New("provider_not_found")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrEventIgnored        = errors.New("event_ignored")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)
