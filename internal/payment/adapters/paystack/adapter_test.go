package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/payment/domain"
)

const testSecret = "sk_test_secret"

func testAdapter(baseURL string) *Adapter {
	return New(config.PaystackConfig{
		SecretKey:     testSecret,
		WebhookSecret: testSecret,
		BaseURL:       baseURL,
	})
}

func sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := testAdapter("")
	payload := []byte(`{"event":"charge.success"}`)

	headers := http.Header{}
	headers.Set("x-paystack-signature", sign(payload))

	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	adapter := testAdapter("")
	payload := []byte(`{"event":"charge.success","data":{"amount":4000}}`)

	headers := http.Header{}
	headers.Set("x-paystack-signature", sign(payload))

	tampered := []byte(`{"event":"charge.success","data":{"amount":400000}}`)
	if err := adapter.Verify(context.Background(), tampered, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	adapter := testAdapter("")
	if err := adapter.Verify(context.Background(), []byte(`{}`), http.Header{}); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseChargeSuccess(t *testing.T) {
	adapter := testAdapter("")
	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "trx_123",
			"amount": 4000,
			"currency": "GHS",
			"paid_at": "2026-08-29T10:00:00Z",
			"metadata": {"quote_id": "1234567890", "purpose": "points_topup"},
			"customer": {"email": "traveler@example.com"}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Reference != "trx_123" {
		t.Fatalf("expected reference trx_123, got %s", event.Reference)
	}
	if event.AmountMinor != 4000 {
		t.Fatalf("expected amount 4000, got %d", event.AmountMinor)
	}
	if event.Currency != "GHS" {
		t.Fatalf("expected currency GHS, got %s", event.Currency)
	}
	if event.QuoteID != "1234567890" {
		t.Fatalf("expected quote id 1234567890, got %s", event.QuoteID)
	}
	if event.CustomerEmail != "traveler@example.com" {
		t.Fatalf("unexpected email %s", event.CustomerEmail)
	}
	if event.Type != domain.EventTypePaymentSucceeded {
		t.Fatalf("unexpected event type %s", event.Type)
	}
}

func TestParseNumericQuoteID(t *testing.T) {
	adapter := testAdapter("")
	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "trx_123",
			"amount": 4000,
			"currency": "GHS",
			"metadata": {"quote_id": 1234567890}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.QuoteID != "1234567890" {
		t.Fatalf("expected quote id 1234567890, got %s", event.QuoteID)
	}
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	adapter := testAdapter("")

	for _, raw := range []string{
		`{"event":"transfer.success","data":{"reference":"trx_1","amount":100,"currency":"GHS"}}`,
		`{"event":"charge.success","data":{"reference":"trx_2","amount":100,"currency":"GHS","metadata":{"purpose":"subscription"}}}`,
	} {
		if _, err := adapter.Parse(context.Background(), []byte(raw)); !errors.Is(err, domain.ErrEventIgnored) {
			t.Fatalf("expected ErrEventIgnored for %s, got %v", raw, err)
		}
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := testAdapter("")
	if _, err := adapter.Parse(context.Background(), []byte(`not-json`)); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"event":"charge.success","data":{"amount":100,"currency":"GHS"}}`)); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing reference, got %v", err)
	}
}

func TestInitiateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testSecret {
			t.Errorf("unexpected auth header %s", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["email"] != "traveler@example.com" {
			t.Errorf("unexpected email %v", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "trx_123",
			},
		})
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	resp, err := adapter.Initiate(context.Background(), domain.InitiateRequest{
		Email:       "traveler@example.com",
		AmountMinor: 4000,
		Currency:    "GHS",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if resp.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Fatalf("unexpected authorization url %s", resp.AuthorizationURL)
	}
	if resp.Reference != "trx_123" {
		t.Fatalf("unexpected reference %s", resp.Reference)
	}
}

func TestInitiateProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	_, err := adapter.Initiate(context.Background(), domain.InitiateRequest{
		Email:       "traveler@example.com",
		AmountMinor: 4000,
		Currency:    "GHS",
	})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
