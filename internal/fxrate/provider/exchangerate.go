package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcofie/itinero-web-sub003/internal/config"
	"github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	"github.com/mcofie/itinero-web-sub003/internal/observability/tracing"
)

const Name = "exchangerate-api"

// ExchangeRateAPI fetches daily rate tables from exchangerate-api.com.
type ExchangeRateAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewExchangeRateAPI(cfg config.FXConfig) *ExchangeRateAPI {
	return &ExchangeRateAPI{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	}
}

func (p *ExchangeRateAPI) Name() string { return Name }

type latestResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (p *ExchangeRateAPI) Fetch(ctx context.Context, base string) (*domain.RateTable, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, domain.ErrInvalidCurrency
	}

	url := fmt.Sprintf("%s/v6/%s/latest/%s", p.baseURL, p.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	var decoded latestResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if decoded.Result != "success" || len(decoded.ConversionRates) == 0 {
		return nil, fmt.Errorf("%w: result %q", domain.ErrProviderUnavailable, decoded.Result)
	}

	return &domain.RateTable{
		Rates: decoded.ConversionRates,
		Raw:   raw,
	}, nil
}
