package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTTPClient_Pools tests fetching the pool registry.
func TestHTTPClient_Pools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/carbon/perpspool/v1/pools", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"pools":[{"id":"1","denom":"cplt/1","deposit_denom":"cgt/1"},{"id":"2","denom":"cplt/2","deposit_denom":"cgt/1"}]}`))
	}))
	defer server.Close()

	client := NewHTTPWithOpts(Opts{Endpoints: []string{server.URL}})
	pools, err := client.Pools(context.Background())

	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "1", pools[0].ID)
	assert.Equal(t, "cplt/2", pools[1].Denom)
	assert.Equal(t, "cgt/1", pools[1].DepositDenom)
}

// TestHTTPClient_TokenPrices tests decoding prices given as strings or numbers.
func TestHTTPClient_TokenPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens", r.URL.Path)
		assert.Equal(t, "5000", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"denom":"swth","price_usd":"0.0042","decimals":8},{"denom":"usdc","price_usd":1,"decimals":6}]}`))
	}))
	defer server.Close()

	client := NewHTTPWithOpts(Opts{Endpoints: []string{server.URL}})
	prices, err := client.TokenPrices(context.Background())

	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "0.0042", prices[0].PriceUSD.String())
	assert.Equal(t, int32(8), prices[0].Decimals)
	assert.Equal(t, "1", prices[1].PriceUSD.String())
}

// TestHTTPClient_MarkPrices tests decoding market marks.
func TestHTTPClient_MarkPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/carbon/pricing/v1/prices", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"prices": []map[string]string{{"market_id": "cmkt/1", "mark": "65000000000000000000000"}},
		})
	}))
	defer server.Close()

	client := NewHTTPWithOpts(Opts{Endpoints: []string{server.URL}})
	marks, err := client.MarkPrices(context.Background())

	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "cmkt/1", marks[0].MarketID)
	assert.Equal(t, "65000000000000000000000", marks[0].Mark.String())
}

// TestHTTPClient_FailsOverAndOpensBreaker tests endpoint rotation on 5xx.
func TestHTTPClient_FailsOverAndOpensBreaker(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pools":[]}`))
	}))
	defer good.Close()

	client := NewHTTPWithOpts(Opts{
		Endpoints:       []string{bad.URL, good.URL},
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	})

	for i := 0; i < 4; i++ {
		_, err := client.Pools(context.Background())
		require.NoError(t, err)
	}
	// breaker opens after two failures, the bad endpoint is skipped afterwards
	assert.Equal(t, int32(2), badHits.Load())
}

// TestHTTPClient_AllEndpointsDown tests that the last error is surfaced.
func TestHTTPClient_AllEndpointsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPWithOpts(Opts{Endpoints: []string{server.URL}})
	_, err := client.TokenPrices(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server 503")
}

func TestHTTPClient_NoEndpoints(t *testing.T) {
	client := NewHTTPWithOpts(Opts{})
	_, err := client.Pools(context.Background())
	assert.ErrorContains(t, err, "no endpoints configured")
}
