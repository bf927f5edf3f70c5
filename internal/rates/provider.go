package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the exchangerate.host API root.
	DefaultBaseURL        = "https://api.exchangerate.host"
	defaultRequestTimeout = 20 * time.Second
	maxBodyBytes          = 1 << 20
	maxErrorBodyBytes     = 512
	providerName          = "exchangerate.host"
)

// Provider fetches live quotes for a base currency using an API key.
// Quotes are keyed by the provider's pair encoding, e.g. "USDEUR".
type Provider interface {
	FetchLive(ctx context.Context, apiKey, base string) (map[string]float64, error)
}

type liveEnvelope struct {
	Success bool               `json:"success"`
	Source  string             `json:"source"`
	Quotes  map[string]float64 `json:"quotes"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// ExchangeRateHostClient calls the exchangerate.host live endpoint.
type ExchangeRateHostClient struct {
	baseURL string
	client  *http.Client
}

// NewExchangeRateHostClient builds a client. Empty baseURL and non-positive timeout use defaults.
func NewExchangeRateHostClient(baseURL string, timeout time.Duration) *ExchangeRateHostClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ExchangeRateHostClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchLive performs GET {baseURL}/live?access_key=KEY&source=BASE.
func (c *ExchangeRateHostClient) FetchLive(ctx context.Context, apiKey, base string) (map[string]float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query := url.Values{}
	query.Set("access_key", apiKey)
	query.Set("source", base)
	target := c.baseURL + "/live?" + query.Encode()

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if errReq != nil {
		return nil, &UpstreamError{Provider: providerName, Err: errReq}
	}
	req.Header.Set("Accept", "application/json")

	resp, errResp := c.client.Do(req)
	if errResp != nil {
		return nil, &UpstreamError{Provider: providerName, Err: stripURL(errResp)}
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("rates: close response body error: %v", errClose)
		}
	}()

	payload, errRead := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if errRead != nil {
		return nil, &UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Err: errRead}
	}

	var envelope liveEnvelope
	errDecode := json.Unmarshal(payload, &envelope)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		upstream := &UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("non-2xx status=%d", resp.StatusCode),
		}
		if errDecode == nil && envelope.Error != nil {
			upstream.Code, upstream.Type, upstream.Info = envelope.Error.Code, envelope.Error.Type, envelope.Error.Info
		}
		log.Warnf("rates: provider status=%d body=%s", resp.StatusCode, summarizePayload(payload))
		return nil, upstream
	}
	if errDecode != nil {
		return nil, &UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", errDecode)}
	}
	if !envelope.Success {
		upstream := &UpstreamError{Provider: providerName, StatusCode: resp.StatusCode}
		if envelope.Error != nil {
			upstream.Code, upstream.Type, upstream.Info = envelope.Error.Code, envelope.Error.Type, envelope.Error.Info
		} else {
			upstream.Err = errors.New("unsuccessful response")
		}
		return nil, upstream
	}
	if envelope.Quotes == nil {
		return nil, &UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Err: errors.New("response has no quotes")}
	}
	return envelope.Quotes, nil
}

// stripURL drops the request URL from transport errors so the access key never reaches logs or callers.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func summarizePayload(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorBodyBytes {
		return text[:maxErrorBodyBytes] + "..."
	}
	return text
}
