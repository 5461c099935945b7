package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"
)

// CoinGeckoClient client for CoinGecko API
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client. An empty baseURL uses the public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coingeckoAPI
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PriceResponse response from CoinGecko API
type PriceResponse struct {
	Cardano struct {
		USD float64 `json:"usd"`
	} `json:"cardano"`
}

// GetADAtoUSDRate gets the ADA to USD exchange rate
func (c *CoinGeckoClient) GetADAtoUSDRate(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/simple/price?ids=cardano&vs_currencies=usd", c.baseURL)

	var priceResp PriceResponse
	if err := httpRequest(ctx, c.client, http.MethodGet, url, nil, nil, &priceResp); err != nil {
		return "", fmt.Errorf("failed to get rate: %w", err)
	}
	if priceResp.Cardano.USD <= 0 {
		return "", fmt.Errorf("failed to get rate: no ADA price in response")
	}

	rate := strconv.FormatFloat(priceResp.Cardano.USD, 'f', 4, 64)
	return rate, nil
}

// FiatValue converts an ADA display amount with a rate into a two decimal string.
// Float is used for display only.
func FiatValue(ada, rate string) string {
	adaFloat, _ := strconv.ParseFloat(ada, 64)
	rateFloat, _ := strconv.ParseFloat(rate, 64)
	return fmt.Sprintf("%.2f", adaFloat*rateFloat)
}
