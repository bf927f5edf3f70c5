package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExchangeRateHostClientFailureEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":101,"type":"missing_access_key","info":"You have not supplied an API Access Key."}}`))
	}))
	defer server.Close()

	client := NewExchangeRateHostClient(server.URL+"/", time.Second)
	_, err := client.FetchLive(context.Background(), "secret-key", "USD")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Code != 101 || upstream.Type != "missing_access_key" {
		t.Fatalf("unexpected upstream fields: %+v", upstream)
	}
	if upstream.Diagnostic() != "You have not supplied an API Access Key." {
		t.Fatalf("unexpected diagnostic %q", upstream.Diagnostic())
	}
}

func TestExchangeRateHostClientNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewExchangeRateHostClient(server.URL, time.Second)
	_, err := client.FetchLive(context.Background(), "secret-key", "USD")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", upstream.StatusCode)
	}
}

func TestExchangeRateHostClientTimeoutHidesKey(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewExchangeRateHostClient(server.URL, 50*time.Millisecond)
	_, err := client.FetchLive(context.Background(), "secret-key", "USD")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestNormalizeBase(t *testing.T) {
	cases := map[string]string{"": "USD", " usd ": "USD", "eur": "EUR", "JPY": "JPY"}
	for in, want := range cases {
		got, err := NormalizeBase(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeBase(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
