package pumpfun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
)

const mint = "7esezYBWmGdkBW8dgdVNb5vrjcocULzq5YASZE6bpump"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, TradePageLimit: 2, PageDelay: 0},
		httpclient.New("pumpfun", httpclient.WithRetryMax(0)), nil)
}

func TestClient_Coin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/"+mint, r.URL.Path)
		w.Write([]byte(`{
			"mint": "` + mint + `",
			"name": "Pepe",
			"symbol": "PEPE",
			"twitter": "https://x.com/pepe",
			"telegram": null,
			"creator": "Creator1111111111111111111111111111111111",
			"complete": false,
			"total_supply": 1000000000000000,
			"virtual_sol_reserves": "30000000000",
			"usd_market_cap": 5123.4
		}`))
	}))

	coin, err := c.Coin(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "Pepe", coin.Name)
	assert.Equal(t, uint64(1_000_000_000_000_000), uint64(coin.TotalSupply))
	assert.Equal(t, uint64(30_000_000_000), uint64(coin.VirtualSolReserves))
	require.NotNil(t, coin.Twitter)
	assert.Nil(t, coin.Telegram)
}

func TestClient_Coin_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.Coin(context.Background(), mint)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_Coin_EmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	_, err := c.Coin(context.Background(), mint)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_Trades_PagesUntilShortPage(t *testing.T) {
	var offsets []int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades/all/"+mint, r.URL.Path)
		assert.Equal(t, "10000", r.URL.Query().Get("minimumSize"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, offset)

		n := 2
		if offset == 4 {
			n = 1
		}
		page := make([]map[string]interface{}, n)
		for i := range page {
			page[i] = map[string]interface{}{
				"signature":    fmt.Sprintf("sig-%d", offset+i),
				"mint":         mint,
				"sol_amount":   1_000_000_000,
				"token_amount": 35_000_000_000,
				"is_buy":       i%2 == 0,
				"user":         "user",
				"timestamp":    1_700_000_000 - offset - i,
			}
		}
		json.NewEncoder(w).Encode(page)
	}))

	trades, err := c.Trades(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, offsets)
	require.Len(t, trades, 5)
	assert.Equal(t, "sig-0", trades[0].Signature)
	assert.Equal(t, uint64(1_000_000_000), trades[0].SolAmount)
	assert.True(t, trades[0].IsBuy)
	assert.Nil(t, trades[0].Slot)
}

func TestClient_Trades_ErrorAborts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.Trades(context.Background(), mint)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestClient_Similar(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/similar", r.URL.Path)
		assert.Equal(t, mint, r.URL.Query().Get("mint"))
		assert.Equal(t, "15", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"mint":"a","name":"A"},{"mint":"b","name":"B"}]`))
	}))

	coins, err := c.Similar(context.Background(), mint, 0)
	require.NoError(t, err)
	assert.Len(t, coins, 2)
}

func TestClient_CreatedBy_BothShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"mint":"a","complete":true},{"mint":"b","usd_market_cap":100}]`,
		"wrapped": `{"coins":[{"mint":"a","complete":true},{"mint":"b","usd_market_cap":100}],"count":2}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "false", r.URL.Query().Get("includeNsfw"))
				w.Write([]byte(body))
			}))
			stats, err := c.CreatorStats(context.Background(), "creator", 10)
			require.NoError(t, err)
			// the completed coin has no market cap, so it is a rug as well
			assert.Equal(t, domain.CreatorStats{Creator: "creator", Total: 2, Successful: 1, Rugged: 2}, stats)
		})
	}
}

func TestAnalyzeCreatorCoins(t *testing.T) {
	coins := []Coin{
		{Mint: "done-small", Complete: true, USDMarketCap: 100},
		{Mint: "done-band", Complete: true, USDMarketCap: 20_000},
		{Mint: "rug", USDMarketCap: 3_999},
		{Mint: "gap", USDMarketCap: 4_000},
		{Mint: "band-low", USDMarketCap: 10_000},
		{Mint: "band-high", USDMarketCap: 50_000},
		{Mint: "above", USDMarketCap: 50_001},
	}
	stats := AnalyzeCreatorCoins("c", coins, false)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 2, stats.Rugged)
	assert.Equal(t, 3, stats.InProgress)
	assert.Nil(t, stats.SuccessTokens)
	assert.Nil(t, stats.RugTokens)
	assert.Nil(t, stats.ProgressTokens)
}

func TestAnalyzeCreatorCoins_IncludeTokens(t *testing.T) {
	coins := []Coin{
		{Mint: "done-small", Name: "Done", Symbol: "DN", ImageURI: "img", CreatedTimestamp: 1700000000000, Complete: true, USDMarketCap: 100},
		{Mint: "band", USDMarketCap: 12_000},
		{Mint: "above", USDMarketCap: 90_000},
	}
	stats := AnalyzeCreatorCoins("c", coins, true)

	mints := func(tokens []domain.CreatorToken) []string {
		out := []string{}
		for _, tok := range tokens {
			out = append(out, tok.Mint)
		}
		return out
	}
	assert.Equal(t, []string{"done-small"}, mints(stats.SuccessTokens))
	assert.Equal(t, []string{"done-small"}, mints(stats.RugTokens))
	assert.Equal(t, []string{"band"}, mints(stats.ProgressTokens))
	assert.Equal(t, domain.CreatorToken{Mint: "done-small", Name: "Done", Symbol: "DN", Image: "img", CreatedTimestamp: 1700000000000}, stats.SuccessTokens[0])

	empty := AnalyzeCreatorCoins("c", nil, true)
	assert.NotNil(t, empty.RugTokens)
	assert.Empty(t, empty.RugTokens)
}

func TestFlexUint(t *testing.T) {
	var v struct {
		A FlexUint `json:"a"`
		B FlexUint `json:"b"`
		C FlexUint `json:"c"`
		D FlexUint `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"34","c":5.6e3,"d":null}`), &v))
	assert.Equal(t, FlexUint(12), v.A)
	assert.Equal(t, FlexUint(34), v.B)
	assert.Equal(t, FlexUint(5600), v.C)
	assert.Equal(t, FlexUint(0), v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"a":-1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &v))
}
