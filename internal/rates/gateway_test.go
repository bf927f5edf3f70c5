package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/toolcatalog/toolcatalog/internal/apikeys"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"gorm.io/gorm"
)

type fakeProvider struct {
	calls  atomic.Int32
	quotes map[string]float64
	err    error
}

func (p *fakeProvider) FetchLive(_ context.Context, _ string, _ string) (map[string]float64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]float64, len(p.quotes))
	for k, v := range p.quotes {
		out[k] = v
	}
	return out, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupGatewayTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:rates_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.APIKey{}, &models.CacheEntry{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func seedKey(t *testing.T, reg *apikeys.Registry, key string) *models.APIKey {
	t.Helper()
	row, errCreate := reg.Create(security.WithAdmin(context.Background()), apikeys.CreateInput{
		Key:          key,
		Provider:     models.ProviderExchangeRate,
		MonthlyLimit: 100,
	})
	if errCreate != nil {
		t.Fatalf("seed key: %v", errCreate)
	}
	return row
}

func requestCount(t *testing.T, db *gorm.DB, id uint64) int64 {
	t.Helper()
	var row models.APIKey
	if errFind := db.First(&row, id).Error; errFind != nil {
		t.Fatalf("load key: %v", errFind)
	}
	return row.RequestCount
}

func newTestGateway(t *testing.T, provider Provider) (*Gateway, *gorm.DB, *apikeys.Registry, *testClock) {
	t.Helper()
	db := setupGatewayTestDB(t)
	reg := apikeys.NewRegistry(db)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	gw := NewGateway(NewGormCache(db), reg, provider)
	gw.SetClock(clock.Now)
	return gw, db, reg, clock
}

func TestGetRatesFreshnessWindow(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91, "USDGBP": 0.79}}
	gw, _, reg, clock := newTestGateway(t, provider)
	seedKey(t, reg, "abc123")
	ctx := context.Background()

	if _, err := gw.GetRates(ctx, "USD"); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("expected 1 provider call, got %d", got)
	}

	clock.now = clock.now.Add(59 * time.Minute)
	if _, err := gw.GetRates(ctx, "USD"); err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("expected cached read at +59m, provider calls=%d", got)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := gw.GetRates(ctx, "USD"); err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if got := provider.calls.Load(); got != 2 {
		t.Fatalf("expected refetch at +61m, provider calls=%d", got)
	}
}

func TestGetRatesPinsBaseRate(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"EURUSD": 1.09, "EUREUR": 0.97, "EURJPY": 162.5, "USDGBP": 0.79, "EUR": 3}}
	gw, _, reg, _ := newTestGateway(t, provider)
	seedKey(t, reg, "abc123")

	rates, err := gw.GetRates(context.Background(), "eur")
	if err != nil {
		t.Fatalf("get rates: %v", err)
	}
	want := map[string]float64{"EUR": 1.0, "USD": 1.09, "JPY": 162.5}
	if !reflect.DeepEqual(rates, want) {
		t.Fatalf("unexpected rates: %#v", rates)
	}
}

func TestGetRatesWithoutKeyFailsBeforeProviderCall(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91}}
	gw, _, reg, _ := newTestGateway(t, provider)
	_, errCreate := reg.Create(security.WithAdmin(context.Background()), apikeys.CreateInput{
		Key:      "disabled",
		Provider: models.ProviderExchangeRate,
		IsActive: func() *bool { v := false; return &v }(),
	})
	if errCreate != nil {
		t.Fatalf("seed inactive key: %v", errCreate)
	}

	_, err := gw.GetRates(context.Background(), "USD")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if got := provider.calls.Load(); got != 0 {
		t.Fatalf("expected no provider call, got %d", got)
	}
}

func TestGetRatesRejectsMalformedBase(t *testing.T) {
	provider := &fakeProvider{}
	gw, _, _, _ := newTestGateway(t, provider)
	for _, base := range []string{"US", "USDX", "U$D", "12A"} {
		if _, err := gw.GetRates(context.Background(), base); !errors.Is(err, ErrInvalidBase) {
			t.Fatalf("base %q: expected ErrInvalidBase, got %v", base, err)
		}
	}
	if got := provider.calls.Load(); got != 0 {
		t.Fatalf("expected no provider call, got %d", got)
	}
}

func TestGetRatesDefaultsToUSD(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91}}
	gw, _, reg, _ := newTestGateway(t, provider)
	seedKey(t, reg, "abc123")

	rates, err := gw.GetRates(context.Background(), "")
	if err != nil {
		t.Fatalf("get rates: %v", err)
	}
	if rates["USD"] != 1.0 || rates["EUR"] != 0.91 {
		t.Fatalf("unexpected rates: %#v", rates)
	}
}

func TestGetRatesUpstreamFailureLeavesUsageAndCacheUntouched(t *testing.T) {
	provider := &fakeProvider{err: &UpstreamError{Provider: "test", Code: 101, Type: "invalid_access_key", Info: "You have not supplied a valid API Access Key."}}
	gw, db, reg, _ := newTestGateway(t, provider)
	key := seedKey(t, reg, "abc123")

	_, err := gw.GetRates(context.Background(), "USD")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Diagnostic() != "You have not supplied a valid API Access Key." {
		t.Fatalf("unexpected diagnostic %q", upstream.Diagnostic())
	}
	if got := requestCount(t, db, key.ID); got != 0 {
		t.Fatalf("expected request count 0, got %d", got)
	}
	var cached int64
	db.Model(&models.CacheEntry{}).Count(&cached)
	if cached != 0 {
		t.Fatalf("expected no cache entries, got %d", cached)
	}
}

func TestGetRatesIdempotentReRead(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91, "USDGBP": 0.79, "USDJPY": 149.2}}
	gw, db, reg, clock := newTestGateway(t, provider)
	key := seedKey(t, reg, "abc123")
	ctx := context.Background()

	first, err := gw.GetRates(ctx, "USD")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	countAfterFirst := requestCount(t, db, key.ID)

	clock.now = clock.now.Add(10 * time.Minute)
	second, err := gw.GetRates(ctx, "USD")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("expected identical mappings, got %s vs %s", firstJSON, secondJSON)
	}
	if got := requestCount(t, db, key.ID); got != countAfterFirst {
		t.Fatalf("expected request count unchanged at %d, got %d", countAfterFirst, got)
	}
}

func TestGetRatesEndToEndWithProviderServer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/live" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_key") != "abc123" || r.URL.Query().Get("source") != "USD" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"source":"USD","quotes":{"USDEUR":0.91,"USDGBP":0.79}}`))
	}))
	defer server.Close()

	client := NewExchangeRateHostClient(server.URL, time.Second)
	gw, db, reg, _ := newTestGateway(t, client)
	key := seedKey(t, reg, "abc123")

	rates, err := gw.GetRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("get rates: %v", err)
	}
	want := map[string]float64{"USD": 1.0, "EUR": 0.91, "GBP": 0.79}
	if !reflect.DeepEqual(rates, want) {
		t.Fatalf("unexpected rates: %#v", rates)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one provider call, got %d", got)
	}
	if got := requestCount(t, db, key.ID); got != 1 {
		t.Fatalf("expected request count 1, got %d", got)
	}
	var entry models.CacheEntry
	if errFind := db.First(&entry, "key = ?", "rates_USD").Error; errFind != nil {
		t.Fatalf("expected cache entry rates_USD: %v", errFind)
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*Entry, error) { return nil, nil }

func (failingCache) Put(context.Context, string, Entry) error { return errors.New("cache down") }

func TestGetRatesToleratesCacheWriteFailure(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91}}
	db := setupGatewayTestDB(t)
	reg := apikeys.NewRegistry(db)
	key := seedKey(t, reg, "abc123")
	gw := NewGateway(failingCache{}, reg, provider)

	rates, err := gw.GetRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("expected success despite cache failure, got %v", err)
	}
	if rates["EUR"] != 0.91 {
		t.Fatalf("unexpected rates: %#v", rates)
	}
	if got := requestCount(t, db, key.ID); got != 1 {
		t.Fatalf("expected usage recorded, got %d", got)
	}
}

type failingUsageKeys struct {
	key   models.APIKey
	calls atomic.Int32
}

func (k *failingUsageKeys) SelectActiveKey(context.Context, models.Provider) (*models.APIKey, error) {
	row := k.key
	return &row, nil
}

func (k *failingUsageKeys) RecordUsage(context.Context, uint64) error {
	k.calls.Add(1)
	return errors.New("usage store down")
}

func TestGetRatesToleratesUsageWriteFailure(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]float64{"USDEUR": 0.91}}
	db := setupGatewayTestDB(t)
	keys := &failingUsageKeys{key: models.APIKey{ID: 7, Key: "abc123", Provider: models.ProviderExchangeRate, IsActive: true}}
	gw := NewGateway(NewGormCache(db), keys, provider)

	rates, err := gw.GetRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("expected success despite usage failure, got %v", err)
	}
	want := map[string]float64{"USD": 1.0, "EUR": 0.91}
	if !reflect.DeepEqual(rates, want) {
		t.Fatalf("unexpected rates: %#v", rates)
	}
	if got := keys.calls.Load(); got != 1 {
		t.Fatalf("expected one usage attempt, got %d", got)
	}
	entry, errGet := NewGormCache(db).Get(context.Background(), CacheKey("USD"))
	if errGet != nil || entry == nil {
		t.Fatalf("expected cache written, got %+v, %v", entry, errGet)
	}
}
