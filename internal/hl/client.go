package hl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultRestURL is the venue's mainnet info endpoint host.
const DefaultRestURL = "https://api.hyperliquid.xyz"

// Client is the Hyperliquid info REST client (boundary layer). It is
// stateless and reentrant: one instance may serve any number of
// concurrent sessions and facade requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an info client against the given base URL.
// An empty baseURL selects mainnet.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "hl_client"),
	}
}

// infoRequest is the body shape of every info call.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// FrontendOpenOrders fetches the wallet's current open orders.
func (c *Client) FrontendOpenOrders(ctx context.Context, wallet string) ([]BasicOrder, error) {
	var orders []BasicOrder
	if err := c.postInfo(ctx, infoRequest{Type: "frontendOpenOrders", User: wallet}, &orders); err != nil {
		return nil, fmt.Errorf("frontend open orders: %w", err)
	}
	return orders, nil
}

// UserFills fetches the wallet's historical fills, most recent first.
func (c *Client) UserFills(ctx context.Context, wallet string) ([]Fill, error) {
	var fills []Fill
	if err := c.postInfo(ctx, infoRequest{Type: "userFills", User: wallet}, &fills); err != nil {
		return nil, fmt.Errorf("user fills: %w", err)
	}
	return fills, nil
}

// postInfo sends one info request and decodes the response into out.
func (c *Client) postInfo(ctx context.Context, body infoRequest, out any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("info %s: status=%d body=%s", body.Type, resp.StatusCode, string(bodyBytes))
	}
	// The venue returns "null" for wallets with no records.
	if len(bytes.TrimSpace(bodyBytes)) == 0 || string(bytes.TrimSpace(bodyBytes)) == "null" {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("info %s: decode: %w", body.Type, err)
	}
	return nil
}
