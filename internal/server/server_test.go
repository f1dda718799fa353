package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hlview/internal/domain"
	"hlview/internal/hl"
	"hlview/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGinContext(req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

// fakeInfo serves the venue's info endpoint from canned data.
type fakeInfo struct {
	fills  []hl.Fill
	orders []hl.BasicOrder
	fail   bool
}

func (f *fakeInfo) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			http.Error(w, "upstream down", http.StatusInternalServerError)
			return
		}
		var req struct {
			Type string `json:"type"`
			User string `json:"user"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Type {
		case "userFills":
			_ = json.NewEncoder(w).Encode(f.fills)
		case "frontendOpenOrders":
			_ = json.NewEncoder(w).Encode(f.orders)
		default:
			http.Error(w, "unknown type", http.StatusBadRequest)
		}
	}
}

func testConfig(t *testing.T, restURL string) *infra.Config {
	t.Helper()
	cfg, err := infra.LoadConfig("no-such-config.yaml") // defaults
	require.NoError(t, err)
	cfg.Hyperliquid.RestURL = restURL
	return cfg
}

func newTestServer(t *testing.T, info *fakeInfo) *Server {
	t.Helper()
	upstream := httptest.NewServer(info.handler())
	t.Cleanup(upstream.Close)

	cfg := testConfig(t, upstream.URL)
	return New(cfg, hl.NewClient(upstream.URL), nil)
}

func makeFills(n int) []hl.Fill {
	fills := make([]hl.Fill, 0, n)
	for i := 0; i < n; i++ {
		side := "B"
		if i%2 == 1 {
			side = "A"
		}
		fills = append(fills, hl.Fill{
			Time: int64(1000 + i), Coin: "BTC", Side: side,
			Px: "100", Sz: "1", OID: int64(i), TID: int64(100 + i),
			Fee: "0.01", FeeCoin: "USDC",
		})
	}
	return fills
}

type executionsResponse struct {
	Executions []domain.Execution `json:"executions"`
	HasMore    bool               `json:"has_more"`
	Page       int                `json:"page"`
	Error      string             `json:"error"`
}

func getJSON(t *testing.T, srv *Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestExecutions_Pagination(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fills: makeFills(25)})

	tests := []struct {
		name      string
		path      string
		wantCount int
		wantMore  bool
		wantPage  int
	}{
		{"first page default limit", "/executions/0xabc", 10, true, 1},
		{"second page", "/executions/0xabc?page=2", 10, true, 2},
		{"last partial page", "/executions/0xabc?limit=10&page=3", 5, false, 3},
		{"past the end", "/executions/0xabc?page=4", 0, false, 4},
		{"custom limit", "/executions/0xabc?limit=25", 25, false, 1},
		{"bad params fall back to defaults", "/executions/0xabc?limit=zero&page=-1", 10, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp executionsResponse
			rec := getJSON(t, srv, tt.path, &resp)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, resp.Executions, tt.wantCount)
			assert.Equal(t, tt.wantMore, resp.HasMore)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Empty(t, resp.Error)
		})
	}
}

func TestExecutions_ParsedFields(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fills: []hl.Fill{
		{Time: 5, Coin: "BTC", Side: "B", Px: "100.5", Sz: "2", OID: 1, TID: 9, Fee: "0.1", FeeCoin: "USDC"},
	}})

	var resp executionsResponse
	getJSON(t, srv, "/executions/0xabc", &resp)

	require.Len(t, resp.Executions, 1)
	e := resp.Executions[0]
	assert.Equal(t, domain.SideBuy, e.Side)
	assert.Equal(t, 100.5, e.Px)
	assert.Equal(t, 201.0, e.Notional)
	assert.Equal(t, "USDC", e.FeeCoin)
}

func TestExecutions_FetchFailureDegrades(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fail: true})

	var resp executionsResponse
	rec := getJSON(t, srv, "/executions/0xabc?page=2", &resp)

	// Never a hard failure: HTTP success plus a structured error field.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Executions)
	assert.False(t, resp.HasMore)
	assert.Equal(t, 2, resp.Page)
}

func TestOpenOrders_Snapshot(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{orders: []hl.BasicOrder{
		{Coin: "BTC", Side: "B", LimitPx: "30000", Sz: "0.1", OID: 3, Timestamp: 1_700_000_000_000},
		{Coin: "ETH", Side: "A", LimitPx: "1800", Sz: "2", OID: 4, Timestamp: 1_700_000_000_001},
	}})

	var resp struct {
		OpenOrders []domain.Order `json:"open_orders"`
		Error      string         `json:"error"`
	}
	rec := getJSON(t, srv, "/open_orders/0xabc", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.OpenOrders, 2)
	assert.Equal(t, domain.SideBuy, resp.OpenOrders[0].Side)
	assert.Equal(t, domain.SideSell, resp.OpenOrders[1].Side)
	assert.Empty(t, resp.Error)
}

func TestOpenOrders_FetchFailureDegrades(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fail: true})

	var resp struct {
		OpenOrders []domain.Order `json:"open_orders"`
		Error      string         `json:"error"`
	}
	rec := getJSON(t, srv, "/open_orders/0xabc", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.OpenOrders)
	assert.NotEmpty(t, resp.Error)
}

func TestCVD_Report(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fills: []hl.Fill{
		{Time: 1, Coin: "BTC", Side: "B", Px: "100", Sz: "2", TID: 1},
		{Time: 2, Coin: "BTC", Side: "A", Px: "100", Sz: "1", TID: 2},
		{Time: 3, Coin: "ETH", Side: "B", Px: "10", Sz: "5", TID: 3},
	}})

	var resp domain.CVDReport
	rec := getJSON(t, srv, "/cvd/0xabc?coin=btc", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", resp.Coin, "coin selector is case-normalized")
	assert.Equal(t, 2, resp.TradeCount)
	assert.Equal(t, 1.0, resp.TotalDelta)
	assert.Equal(t, 3.0, resp.TotalVolume)
}

func TestCVD_FetchFailureDegrades(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{fail: true})

	var resp struct {
		Rows  []domain.CVDRow `json:"cvd_data"`
		Error string          `json:"error"`
	}
	rec := getJSON(t, srv, "/cvd/0xabc", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Rows)
	assert.NotEmpty(t, resp.Error)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{})

	var resp infra.StatsSnapshot
	rec := getJSON(t, srv, "/stats", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeInfo{})
	router := srv.Router()

	t.Run("allowed origin echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/executions/0xabc", nil)
		req.Header.Set("Origin", "http://localhost:3001")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestIntQuery(t *testing.T) {
	for _, tt := range []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"5", 5},
		{"0", 10},
		{"-3", 10},
		{"abc", 10},
	} {
		t.Run(fmt.Sprintf("raw=%q", tt.raw), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?limit="+tt.raw, nil)
			c := testGinContext(req)
			assert.Equal(t, tt.want, intQuery(c, "limit", 10))
		})
	}
}
