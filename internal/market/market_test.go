package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/fallback"
	"token-intel/internal/httpclient"
	"token-intel/internal/storage"
)

const mint = "7esezYBWmGdkBW8dgdVNb5vrjcocULzq5YASZE6bpump"

type feeds struct {
	coingecko http.HandlerFunc
	jupiter   http.HandlerFunc
	gecko     int32
	jup       int32
}

func newPricer(t *testing.T, f *feeds, cache storage.Cache) *SolPricer {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cg/simple/price", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.gecko, 1)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		f.coingecko(w, r)
	})
	mux.HandleFunc("/jup/price", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.jup, 1)
		f.jupiter(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := SolConfig{CoingeckoURL: server.URL + "/cg", JupiterURL: server.URL + "/jup", MaxCycles: 2}
	return NewSolPricer(cfg, httpclient.New("price-feed", httpclient.WithRetryMax(0)), cache, nil)
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) }
}

func failing(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "down", http.StatusServiceUnavailable)
}

type memCache struct {
	values map[string]interface{}
	ttl    time.Duration
}

func (m *memCache) GetJSON(_ context.Context, key string, out interface{}) (bool, error) {
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*(out.(*cachedPrice)) = v.(cachedPrice)
	return true, nil
}

func (m *memCache) SetJSON(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = map[string]interface{}{}
	}
	m.values[key] = v
	m.ttl = ttl
	return nil
}

func TestSolPricer_Coingecko(t *testing.T) {
	f := &feeds{coingecko: respond(`{"solana":{"usd":142.5}}`), jupiter: failing}
	price, err := newPricer(t, f, nil).SolUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 142.5, price)
	assert.Equal(t, int32(0), f.jup)
}

func TestSolPricer_FallsBackToJupiter(t *testing.T) {
	f := &feeds{
		coingecko: respond(`{"solana":{}}`),
		jupiter:   respond(`{"data":{"So11111111111111111111111111111111111111112":{"price":141.25}}}`),
	}
	price, err := newPricer(t, f, nil).SolUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 141.25, price)
	assert.Equal(t, int32(1), f.gecko)
}

func TestSolPricer_AllFeedsFail(t *testing.T) {
	f := &feeds{coingecko: failing, jupiter: failing}
	_, err := newPricer(t, f, nil).SolUSD(context.Background())

	var agg *fallback.AggregateFailure
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, 2, agg.Cycles)
	assert.Equal(t, int32(2), f.gecko)
	assert.Equal(t, int32(2), f.jup)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestSolPricer_Cache(t *testing.T) {
	f := &feeds{coingecko: respond(`{"solana":{"usd":150}}`), jupiter: failing}
	cache := &memCache{}
	p := newPricer(t, f, cache)

	for i := 0; i < 3; i++ {
		price, err := p.SolUSD(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 150.0, price)
	}
	assert.Equal(t, int32(1), f.gecko)
	assert.Equal(t, DefaultSolCacheTTL, cache.ttl)
	assert.Equal(t, "coingecko", cache.values[solCacheKey].(cachedPrice).Source)
}

type stubCurves struct {
	info  *domain.CurveInfo
	err   error
	reads *int
}

func (s stubCurves) Info(context.Context, string) (*domain.CurveInfo, error) {
	if s.reads != nil {
		*s.reads++
	}
	return s.info, s.err
}

type stubSol struct {
	price float64
	err   error
}

func (s stubSol) SolUSD(context.Context) (float64, error) { return s.price, s.err }

func launchCurve() *domain.CurveInfo {
	return &domain.CurveInfo{Mint: mint, State: domain.CurveState{
		VirtualSolReserves:   40_000_000_000,
		VirtualTokenReserves: 1_000_000_000_000_000,
	}}
}

func TestTokenPricer_Price(t *testing.T) {
	p := NewTokenPricer(stubCurves{info: launchCurve()}, stubSol{price: 150}, nil)

	price, err := p.Price(context.Background(), mint)
	require.NoError(t, err)
	// 40 SOL over 1B tokens.
	assert.InDelta(t, 4e-8, price.PriceSOL, 1e-20)
	assert.InDelta(t, 6e-6, price.PriceUSD, 1e-18)
	assert.InDelta(t, 6000.0, price.MarketCap, 1e-6)
	assert.Equal(t, 150.0, price.SolUSD)
	assert.False(t, price.Complete)
}

func TestTokenPricer_QuoteReturnsCurve(t *testing.T) {
	reads := 0
	p := NewTokenPricer(stubCurves{info: launchCurve(), reads: &reads}, stubSol{price: 150}, nil)

	price, info, err := p.Quote(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, 1, reads)
	assert.InDelta(t, 4e-8, price.PriceSOL, 1e-20)
	require.NotNil(t, info)
	assert.Equal(t, uint64(40_000_000_000), info.State.VirtualSolReserves)
}

func TestTokenPricer_SolFeedDown(t *testing.T) {
	p := NewTokenPricer(stubCurves{info: launchCurve()}, stubSol{err: domain.ErrUpstream}, nil)

	price, err := p.Price(context.Background(), mint)
	require.NoError(t, err)
	assert.InDelta(t, 4e-8, price.PriceSOL, 1e-20)
	assert.Zero(t, price.PriceUSD)
	assert.Zero(t, price.MarketCap)
}

func TestTokenPricer_CurveErrors(t *testing.T) {
	p := NewTokenPricer(stubCurves{err: domain.ErrNotFound}, stubSol{price: 150}, nil)
	_, err := p.Price(context.Background(), mint)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	p = NewTokenPricer(stubCurves{info: &domain.CurveInfo{}}, stubSol{price: 150}, nil)
	_, err = p.Price(context.Background(), mint)
	assert.True(t, errors.Is(err, domain.ErrDivisionByZero))
}
