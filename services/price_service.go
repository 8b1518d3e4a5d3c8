// services/price_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"sniper-console/utils"
)

// TokenStats is the per-mint price projection shown on the dashboard.
type TokenStats struct {
	PriceUsd  string  `json:"price_usd"`
	MarketCap float64 `json:"market_cap"`
	Change24h float64 `json:"change_24h"`

	// Liquidity of the pool the quote came from; used only for the
	// highest-liquidity tie-break across pools.
	Liquidity float64 `json:"-"`
}

// PriceService fetches token quotes from the dexscreener-shaped feed.
type PriceService struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewPriceService() *PriceService {
	baseURL := os.Getenv("PRICE_FEED_URL")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex"
	}
	return &PriceService{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: utils.HTTPClient,
	}
}

// feedPair mirrors the feed response shape. Every field may be missing;
// an absent 24h change reads as 0.
type feedPair struct {
	BaseToken struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	PriceUsd    string   `json:"priceUsd"`
	MarketCap   *float64 `json:"marketCap"`
	Fdv         *float64 `json:"fdv"`
	PriceChange struct {
		H24 *float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		Usd *float64 `json:"usd"`
	} `json:"liquidity"`
}

// FetchTokenStats fetches quotes for a set of mints in one call. When a
// token trades in multiple pools, the quote from the pool with the
// highest reported liquidity wins.
func (s *PriceService) FetchTokenStats(ctx context.Context, mints []string) (map[string]TokenStats, error) {
	if len(mints) == 0 {
		return map[string]TokenStats{}, nil
	}

	url := fmt.Sprintf("%s/tokens/%s", s.BaseURL, strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create price request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call price feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("price feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Pairs []feedPair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode price feed response: %w", err)
	}

	stats := make(map[string]TokenStats)
	for _, pair := range response.Pairs {
		mint := pair.BaseToken.Address
		if mint == "" {
			continue
		}

		liquidity := 0.0
		if pair.Liquidity.Usd != nil {
			liquidity = *pair.Liquidity.Usd
		}
		if existing, ok := stats[mint]; ok && liquidity <= existing.Liquidity {
			continue
		}

		marketCap := 0.0
		switch {
		case pair.MarketCap != nil:
			marketCap = *pair.MarketCap
		case pair.Fdv != nil:
			marketCap = *pair.Fdv
		}
		change := 0.0
		if pair.PriceChange.H24 != nil {
			change = *pair.PriceChange.H24
		}

		stats[mint] = TokenStats{
			PriceUsd:  pair.PriceUsd,
			MarketCap: marketCap,
			Change24h: change,
			Liquidity: liquidity,
		}
	}
	return stats, nil
}
