package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hlview/internal/domain"
	"hlview/internal/hl"
	"hlview/internal/infra"
	"hlview/internal/infra/storage"
	"hlview/internal/market"
	"hlview/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server wires the streaming endpoint and the REST facade. The
// Hyperliquid client is stateless and shared; storage is an optional
// fills cache and may be nil.
type Server struct {
	cfg      *infra.Config
	client   *hl.Client
	store    *storage.Storage
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server. store may be nil to run without the cache.
func New(cfg *infra.Config, client *hl.Client, store *storage.Storage) *Server {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}

	return &Server{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: slog.Default().With("module", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(s.cfg.Server.AllowedOrigins))

	r.GET("/ws/:wallet", s.handleLiveStream)
	r.GET("/executions/:wallet", s.handleExecutions)
	r.GET("/open_orders/:wallet", s.handleOpenOrders)
	r.GET("/cvd/:wallet", s.handleCVD)
	r.GET("/stats", s.handleStats)

	return r
}

// handleLiveStream accepts one downstream session and drives its
// engine to completion. Each session runs on its own goroutine (the
// handler's); sessions share nothing mutable.
func (s *Server) handleLiveStream(c *gin.Context) {
	wallet := c.Param("wallet")
	coin := strings.ToUpper(c.DefaultQuery("coin", s.cfg.Hyperliquid.DefaultCoin))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	state := session.NewState(wallet, coin)
	eng := session.NewEngine(session.Config{
		WSURL:     s.cfg.Hyperliquid.WSURL,
		BookDepth: s.cfg.Hyperliquid.BookDepth,
	}, state, s.client, &wsPublisher{conn: conn})

	err = eng.Run(c.Request.Context())
	switch {
	case err == nil, domain.IsDownstreamGone(err):
		s.logger.Info("session closed",
			slog.String("session_id", eng.ID()), slog.String("wallet", wallet))
	default:
		s.logger.Error("session failed",
			slog.String("session_id", eng.ID()),
			slog.String("wallet", wallet),
			slog.Any("error", err))
	}
}

// handleExecutions serves paged historical fills. A fetch failure
// degrades to an empty page with an error field, never a hard failure.
func (s *Server) handleExecutions(c *gin.Context) {
	wallet := c.Param("wallet")
	limit := intQuery(c, "limit", 10)
	page := intQuery(c, "page", 1)

	fills, err := s.walletFills(c.Request.Context(), wallet)
	if err != nil {
		fetchErr := domain.NewSessionError(domain.FetchFailed, "user_fills", err)
		s.logger.Warn("executions fetch failed", slog.String("wallet", wallet), slog.Any("error", fetchErr))
		c.JSON(http.StatusOK, gin.H{
			"executions": []domain.Execution{},
			"has_more":   false,
			"page":       page,
			"error":      fetchErr.Error(),
		})
		return
	}

	execs := market.ParseExecutions(fills)
	start, end := (page-1)*limit, page*limit
	pageRows := []domain.Execution{}
	if start < len(execs) {
		if end > len(execs) {
			pageRows = execs[start:]
		} else {
			pageRows = execs[start:end]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": pageRows,
		"has_more":   end < len(execs),
		"page":       page,
	})
}

// handleOpenOrders serves a one-shot open-orders snapshot.
func (s *Server) handleOpenOrders(c *gin.Context) {
	wallet := c.Param("wallet")

	raw, err := s.client.FrontendOpenOrders(c.Request.Context(), wallet)
	if err != nil {
		fetchErr := domain.NewSessionError(domain.FetchFailed, "frontend_open_orders", err)
		s.logger.Warn("open-orders fetch failed", slog.String("wallet", wallet), slog.Any("error", fetchErr))
		c.JSON(http.StatusOK, gin.H{
			"open_orders": []domain.Order{},
			"error":       fetchErr.Error(),
		})
		return
	}

	recs := make([]hl.WsOrderStatus, 0, len(raw))
	for i := range raw {
		recs = append(recs, hl.WsOrderStatus{Order: &raw[i]})
	}
	c.JSON(http.StatusOK, gin.H{"open_orders": market.ParseOrders(recs)})
}

// handleCVD serves cumulative volume delta over the wallet's fills,
// optionally filtered to one coin.
func (s *Server) handleCVD(c *gin.Context) {
	wallet := c.Param("wallet")
	coin := strings.ToUpper(c.Query("coin"))

	fills, err := s.walletFills(c.Request.Context(), wallet)
	if err != nil {
		fetchErr := domain.NewSessionError(domain.FetchFailed, "user_fills", err)
		s.logger.Warn("cvd fetch failed", slog.String("wallet", wallet), slog.Any("error", fetchErr))
		c.JSON(http.StatusOK, gin.H{
			"cvd_data":     []domain.CVDRow{},
			"total_delta":  0,
			"total_volume": 0,
			"trade_count":  0,
			"error":        fetchErr.Error(),
		})
		return
	}

	report := market.CalculateCVD(market.ParseExecutions(fills), coin)
	c.JSON(http.StatusOK, report)
}

// handleStats exposes the process counters.
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, infra.GlobalMetrics.Snapshot())
}

// walletFills reads through the fills cache when one is configured.
// Cache errors degrade to a direct upstream fetch and are never
// user-visible.
func (s *Server) walletFills(ctx context.Context, wallet string) ([]hl.Fill, error) {
	ttl := s.cfg.FillsTTL()
	if s.store != nil && ttl > 0 {
		if fills, ok := s.store.CachedFills(wallet, ttl); ok {
			return fills, nil
		}
	}

	fills, err := s.client.UserFills(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.ReplaceWalletFills(wallet, fills); err != nil {
			s.logger.Warn("fills cache write failed", slog.String("wallet", wallet), slog.Any("error", err))
		}
	}
	return fills, nil
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// wsPublisher pushes snapshots to the downstream subscriber.
type wsPublisher struct {
	conn *websocket.Conn
}

func (p *wsPublisher) Publish(snap domain.Snapshot) error {
	p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return p.conn.WriteJSON(snap)
}
