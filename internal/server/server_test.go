package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditrepository "github.com/mcofie/itinero-web-sub003/internal/audit/repository"
	auditservice "github.com/mcofie/itinero-web-sub003/internal/audit/service"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/events"
	ledgerrepository "github.com/mcofie/itinero-web-sub003/internal/ledger/repository"
	ledgerservice "github.com/mcofie/itinero-web-sub003/internal/ledger/service"
	"github.com/mcofie/itinero-web-sub003/internal/observability/metrics"
	"github.com/mcofie/itinero-web-sub003/internal/payment/adapters"
	"github.com/mcofie/itinero-web-sub003/internal/payment/adapters/paystack"
	paymentservice "github.com/mcofie/itinero-web-sub003/internal/payment/service"
	quotedomain "github.com/mcofie/itinero-web-sub003/internal/quote/domain"
	quoteservice "github.com/mcofie/itinero-web-sub003/internal/quote/service"
	"github.com/mcofie/itinero-web-sub003/internal/reconcile"
	tripservice "github.com/mcofie/itinero-web-sub003/internal/trip/service"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testServiceToken  = "test-service-token"
	testWebhookSecret = "sk_test_webhook"
)

type serverFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	quotes quotedomain.Service
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for name, ddl := range map[string]string{
		"points_quotes": `CREATE TABLE IF NOT EXISTS points_quotes (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			points BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			unit_price_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		"points_ledger": `CREATE TABLE IF NOT EXISTS points_ledger (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			delta BIGINT NOT NULL,
			reason TEXT NOT NULL,
			ref_type TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			UNIQUE (ref_type, ref_id)
		)`,
		"points_events": `CREATE TABLE IF NOT EXISTS points_events (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			dedupe_key TEXT UNIQUE,
			published_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		"audit_logs": `CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY,
			actor_type TEXT NOT NULL,
			actor_id TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT,
			user_agent TEXT,
			created_at DATETIME NOT NULL
		)`,
		"trips": `CREATE TABLE IF NOT EXISTS trips (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			public_id TEXT UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		"fx_snapshots": `CREATE TABLE IF NOT EXISTS fx_snapshots (
			id INTEGER PRIMARY KEY,
			provider TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			as_of DATE NOT NULL,
			rates TEXT NOT NULL DEFAULT '{}',
			raw TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE (provider, base_currency, as_of)
		)`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	log := zap.NewNop()
	cfg := config.Config{
		Environment: "test",
		HTTP:        config.HTTPConfig{Addr: ":0", ShutdownTimeout: time.Second},
		Auth: config.AuthConfig{
			JWTSecret:    testJWTSecret,
			ServiceToken: testServiceToken,
		},
		Points: config.PointsConfig{
			UnitPriceMinor: 40,
			Currency:       "GHS",
			QuoteTTL:       15 * time.Minute,
		},
		Paystack: config.PaystackConfig{
			SecretKey:     testWebhookSecret,
			WebhookSecret: testWebhookSecret,
		},
		FX: config.FXConfig{BaseCurrency: "USD"},
	}

	quotes, err := quoteservice.NewService(quoteservice.Params{
		DB: db, Log: log, GenID: node, Clock: clock.SystemClock{}, Cfg: cfg,
	})
	if err != nil {
		t.Fatalf("quote service: %v", err)
	}
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clock.SystemClock{}, Repo: ledgerrepository.Provide(),
	})
	trips := tripservice.NewService(tripservice.Params{
		DB: db, Log: log, GenID: node, Clock: clock.SystemClock{}, Outbox: events.NewOutbox(db, node),
	})
	recorder := auditservice.NewService(auditservice.Params{
		DB: db, Repo: auditrepository.Provide(), GenID: node, Clock: clock.SystemClock{}, Log: log,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB:       db,
		Registry: adapters.NewRegistry(paystack.New(cfg.Paystack)),
		Quotes:   quotes,
		Ledger:   ledger,
		Outbox:   events.NewOutbox(db, node),
		Audit:    recorder,
		Webhook:  metrics.Webhook(),
		Clock:    clock.SystemClock{},
		Cfg:      cfg,
		Log:      log,
	})
	checker := reconcile.NewChecker(reconcile.Params{Ledger: ledger, Log: log})

	srv := New(Params{
		Cfg:        cfg,
		DB:         db,
		Log:        log,
		QuoteSvc:   quotes,
		LedgerSvc:  ledger,
		PaymentSvc: payments,
		TripSvc:    trips,
		FXSvc:      nil,
		Reconciler: checker,
		AuditSvc:   recorder,
		Clock:      clock.SystemClock{},
	})

	engine := gin.New()
	srv.RegisterRoutes(engine)

	return &serverFixture{engine: engine, db: db, quotes: quotes}
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func (f *serverFixture) do(t *testing.T, method, path, auth string, body []byte, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	recorder := httptest.NewRecorder()
	f.engine.ServeHTTP(recorder, req)
	return recorder
}

func signWebhook(payload []byte) http.Header {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(payload)
	headers := http.Header{}
	headers.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
	return headers
}

func webhookPayload(quoteID snowflake.ID, reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "charge.success",
		"data": {
			"reference": %q,
			"amount": %d,
			"currency": "GHS",
			"metadata": {"quote_id": %q, "purpose": "points_topup"},
			"customer": {"email": "traveler@example.com"}
		}
	}`, reference, amount, quoteID.String()))
}

func TestQuoteRequiresAuth(t *testing.T) {
	fixture := setupServer(t)

	resp := fixture.do(t, http.MethodPost, "/api/points/quote", "", []byte(`{"points":100}`), nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestQuoteBalanceRoundTrip(t *testing.T) {
	fixture := setupServer(t)
	auth := bearerFor(t, "user-1")

	resp := fixture.do(t, http.MethodPost, "/api/points/quote", auth, []byte(`{"points":100}`), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("create quote: %d %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data struct {
			ID          snowflake.ID `json:"id"`
			AmountMinor int64        `json:"amount_minor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if created.Data.AmountMinor != 4000 {
		t.Fatalf("expected amount 4000, got %d", created.Data.AmountMinor)
	}

	resp = fixture.do(t, http.MethodGet, "/api/points/balance", auth, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("balance: %d", resp.Code)
	}
	var balance struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Data.Balance != 0 {
		t.Fatalf("expected zero balance before payment, got %d", balance.Data.Balance)
	}
}

func TestWebhookCreditsOnceAcrossRedeliveries(t *testing.T) {
	fixture := setupServer(t)
	auth := bearerFor(t, "user-1")

	quote, err := fixture.quotes.Create(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}

	payload := webhookPayload(quote.ID, "ref-1", quote.AmountMinor)
	for delivery := 1; delivery <= 2; delivery++ {
		resp := fixture.do(t, http.MethodPost, "/api/paystack/webhook", "", payload, signWebhook(payload))
		if resp.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d %s", delivery, resp.Code, resp.Body.String())
		}
	}

	var entries int64
	if err := fixture.db.Raw(`SELECT COUNT(*) FROM points_ledger`).Scan(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one ledger entry after redelivery, got %d", entries)
	}

	resp := fixture.do(t, http.MethodGet, "/api/points/balance", auth, nil, nil)
	var balance struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Data.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", balance.Data.Balance)
	}
}

func TestWebhookTamperedSignatureNeverCredits(t *testing.T) {
	fixture := setupServer(t)

	quote, err := fixture.quotes.Create(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}

	payload := webhookPayload(quote.ID, "ref-1", quote.AmountMinor)
	headers := http.Header{}
	headers.Set("x-paystack-signature", "deadbeef")

	resp := fixture.do(t, http.MethodPost, "/api/paystack/webhook", "", payload, headers)
	// Bad signatures are acknowledged, never processed.
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", resp.Code)
	}

	var entries int64
	if err := fixture.db.Raw(`SELECT COUNT(*) FROM points_ledger`).Scan(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 0 {
		t.Fatalf("expected zero ledger entries, got %d", entries)
	}
}

func TestVerifyRewardFlow(t *testing.T) {
	fixture := setupServer(t)
	auth := bearerFor(t, "user-1")

	quote, err := fixture.quotes.Create(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}

	resp := fixture.do(t, http.MethodGet, "/api/rewards/verify?reference=ref-1", auth, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("verify pending: %d", resp.Code)
	}
	var pending struct {
		OK       bool `json:"ok"`
		Credited bool `json:"credited"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if !pending.OK || pending.Credited {
		t.Fatalf("expected pending state, got %+v", pending)
	}

	payload := webhookPayload(quote.ID, "ref-1", quote.AmountMinor)
	if resp := fixture.do(t, http.MethodPost, "/api/paystack/webhook", "", payload, signWebhook(payload)); resp.Code != http.StatusOK {
		t.Fatalf("webhook: %d", resp.Code)
	}

	resp = fixture.do(t, http.MethodGet, "/api/rewards/verify?reference=ref-1", auth, nil, nil)
	var credited struct {
		OK       bool  `json:"ok"`
		Credited bool  `json:"credited"`
		Balance  int64 `json:"balance"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &credited); err != nil {
		t.Fatalf("decode credited: %v", err)
	}
	if !credited.Credited || credited.Balance != 100 {
		t.Fatalf("expected credited balance 100, got %+v", credited)
	}
}

func TestTripShareFlow(t *testing.T) {
	fixture := setupServer(t)
	auth := bearerFor(t, "user-1")

	resp := fixture.do(t, http.MethodPost, "/api/trips", auth, []byte(`{"title":"Cape Coast"}`), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("create trip: %d %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data struct {
			ID snowflake.ID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode trip: %v", err)
	}

	path := fmt.Sprintf("/api/trips/%s/public", created.Data.ID.String())
	resp = fixture.do(t, http.MethodPost, path, auth, []byte(`{"public":true}`), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("publish: %d %s", resp.Code, resp.Body.String())
	}
	var published struct {
		Data struct {
			PublicID *string `json:"public_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &published); err != nil {
		t.Fatalf("decode publish: %v", err)
	}
	if published.Data.PublicID == nil || len(*published.Data.PublicID) != 8 {
		t.Fatalf("expected 8-char public id, got %v", published.Data.PublicID)
	}

	// Share page needs no authentication.
	resp = fixture.do(t, http.MethodGet, "/api/trips/shared/"+*published.Data.PublicID, "", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("shared read: %d", resp.Code)
	}

	// Another user cannot toggle visibility.
	resp = fixture.do(t, http.MethodPost, path, bearerFor(t, "user-2"), []byte(`{"public":false}`), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign toggle, got %d", resp.Code)
	}
}

func TestFXRefreshRequiresServiceToken(t *testing.T) {
	fixture := setupServer(t)

	resp := fixture.do(t, http.MethodPost, "/api/fx/refresh", bearerFor(t, "user-1"), nil, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for user token, got %d", resp.Code)
	}
}
