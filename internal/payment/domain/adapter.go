package domain

import (
	"context"
	"net/http"
)

// PaymentAdapter is the per-provider trust boundary. Verify must
// authenticate the exact raw payload bytes before Parse is trusted.
type PaymentAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
}
