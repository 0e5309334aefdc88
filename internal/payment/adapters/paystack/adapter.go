package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/observability/tracing"
	"github.com/mcofie/itinero-web-sub003/internal/payment/domain"
)

const (
	ProviderName = "paystack"

	signatureHeader = "x-paystack-signature"

	eventChargeSuccess = "charge.success"

	// purposeTopup tags checkout sessions opened by this service so
	// unrelated charges on the same Paystack account are skipped.
	purposeTopup = "points_topup"
)

// Adapter implements the Paystack webhook and initiation contracts.
type Adapter struct {
	secretKey     string
	webhookSecret []byte
	baseURL       string
	httpClient    *http.Client
}

func New(cfg config.PaystackConfig) *Adapter {
	return &Adapter{
		secretKey:     cfg.SecretKey,
		webhookSecret: []byte(cfg.WebhookSecret),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    tracing.WrapHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	}
}

func (a *Adapter) Provider() string { return ProviderName }

// Verify recomputes the HMAC-SHA512 of the exact raw body and compares
// it against the signature header in constant time.
func (a *Adapter) Verify(_ context.Context, payload []byte, headers http.Header) error {
	supplied := strings.TrimSpace(headers.Get(signatureHeader))
	if supplied == "" || len(a.webhookSecret) == 0 {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, a.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(supplied))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type eventEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Amount    int64       `json:"amount"`
		Currency  string      `json:"currency"`
		PaidAt    string      `json:"paid_at"`
		Metadata  struct {
			QuoteID any    `json:"quote_id"`
			Purpose string `json:"purpose"`
		} `json:"metadata"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// Parse maps a verified charge.success envelope onto a PaymentEvent.
// Every other event type is ignored rather than failed: Paystack sends
// transfers, disputes and more to the same endpoint.
func (a *Adapter) Parse(_ context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	if envelope.Event != eventChargeSuccess {
		return nil, domain.ErrEventIgnored
	}
	if purpose := strings.TrimSpace(envelope.Data.Metadata.Purpose); purpose != "" && purpose != purposeTopup {
		return nil, domain.ErrEventIgnored
	}

	reference := strings.TrimSpace(envelope.Data.Reference)
	if reference == "" {
		return nil, domain.ErrInvalidPayload
	}
	if envelope.Data.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(envelope.Data.Currency))
	if currency == "" {
		return nil, domain.ErrInvalidCurrency
	}

	occurredAt := time.Now().UTC()
	if paidAt := strings.TrimSpace(envelope.Data.PaidAt); paidAt != "" {
		if parsed, err := time.Parse(time.RFC3339, paidAt); err == nil {
			occurredAt = parsed.UTC()
		}
	}

	return &domain.PaymentEvent{
		Provider:      ProviderName,
		Type:          domain.EventTypePaymentSucceeded,
		Reference:     reference,
		AmountMinor:   envelope.Data.Amount,
		Currency:      currency,
		QuoteID:       coerceID(envelope.Data.Metadata.QuoteID),
		CustomerEmail: strings.TrimSpace(envelope.Data.Customer.Email),
		OccurredAt:    occurredAt,
	}, nil
}

type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	CallbackURL string         `json:"callback_url"`
	Metadata    map[string]any `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initiate opens a Paystack checkout session for the quote amount.
func (a *Adapter) Initiate(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var decoded initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, decoded.Message)
	}

	return &domain.InitiateResponse{
		AuthorizationURL: decoded.Data.AuthorizationURL,
		AccessCode:       decoded.Data.AccessCode,
		Reference:        decoded.Data.Reference,
	}, nil
}

// coerceID tolerates providers rendering metadata values as either
// strings or numbers.
func coerceID(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.0f", typed), ".")
	default:
		return ""
	}
}
