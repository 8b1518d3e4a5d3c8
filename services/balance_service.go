// services/balance_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"sniper-console/utils"
)

// BalanceService fetches SOL balances over Solana JSON-RPC.
type BalanceService struct {
	RPCURL     string
	HTTPClient *http.Client
}

func NewBalanceService() *BalanceService {
	rpcURL := os.Getenv("SOLANA_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://api.mainnet-beta.solana.com"
	}
	return &BalanceService{
		RPCURL:     rpcURL,
		HTTPClient: utils.HTTPClient,
	}
}

// GetBalance returns the wallet's balance in whole SOL.
func (s *BalanceService) GetBalance(ctx context.Context, address string) (float64, error) {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getBalance",
		"params":  []any{address},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to build balance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.RPCURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create balance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call balance feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("balance feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode balance response: %w", err)
	}
	if response.Error != nil {
		return 0, fmt.Errorf("balance feed error: %s", response.Error.Message)
	}

	return utils.LamportsToSol(response.Result.Value), nil
}
