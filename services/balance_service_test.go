package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalanceConvertsLamports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getBalance", req.Method)
		require.Len(t, req.Params, 1)

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]any{"value": 1_500_000_000},
		})
	}))
	defer server.Close()

	svc := &BalanceService{RPCURL: server.URL, HTTPClient: server.Client()}
	balance, err := svc.GetBalance(context.Background(), testAddress("wallet1"))
	require.NoError(t, err)
	assert.Equal(t, 1.5, balance)
}

func TestGetBalanceSurfacesRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32602, "message": "Invalid param: WrongSize"},
		})
	}))
	defer server.Close()

	svc := &BalanceService{RPCURL: server.URL, HTTPClient: server.Client()}
	_, err := svc.GetBalance(context.Background(), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid param")
}
