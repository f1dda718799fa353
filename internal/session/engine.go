package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"hlview/internal/domain"
	"hlview/internal/hl"
	"hlview/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Phase is the engine's lifecycle position.
type Phase int

const (
	Connecting Phase = iota
	Seeding
	Subscribing
	Streaming
	Closing
	Closed
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Seeding:
		return "seeding"
	case Subscribing:
		return "subscribing"
	case Streaming:
		return "streaming"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// maxConsecutiveBadFrames is the cutoff after which a run of
// undecodable upstream frames is treated as a connection-level failure.
// A single bad frame is logged and skipped.
const maxConsecutiveBadFrames = 8

// Publisher pushes one merged snapshot to the downstream subscriber.
// A returned error means the subscriber is gone and ends the session.
type Publisher interface {
	Publish(domain.Snapshot) error
}

// Seeder is the one-shot open-orders fetch used before streaming starts.
type Seeder interface {
	FrontendOpenOrders(ctx context.Context, wallet string) ([]hl.BasicOrder, error)
}

// upstreamConn is the slice of *websocket.Conn the engine needs.
type upstreamConn interface {
	WriteJSON(v any) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Config carries the engine's upstream parameters.
type Config struct {
	WSURL     string
	BookDepth int
}

// Engine owns one upstream multiplexed connection for the lifetime of
// one downstream session. It is single-threaded: each inbound message
// is parsed, applied to State and published to completion before the
// next read, which keeps State safe without locking. Sessions are fully
// independent; nothing here is shared across engines.
type Engine struct {
	cfg       Config
	state     *State
	seeder    Seeder
	publisher Publisher
	id        string
	phase     Phase
	logger    *slog.Logger

	// dial is swapped out by tests.
	dial func(ctx context.Context, url string) (upstreamConn, error)
}

// NewEngine creates an engine for one accepted downstream session.
func NewEngine(cfg Config, state *State, seeder Seeder, publisher Publisher) *Engine {
	id := uuid.NewString()
	return &Engine{
		cfg:       cfg,
		state:     state,
		seeder:    seeder,
		publisher: publisher,
		id:        id,
		phase:     Connecting,
		logger: slog.Default().With(
			"module", "session",
			"session_id", id,
			"wallet", state.Wallet,
			"coin", state.Coin,
		),
		dial: dialUpstream,
	}
}

// ID returns the session's correlation id.
func (e *Engine) ID() string {
	return e.id
}

// Phase returns the engine's lifecycle position. Only meaningful
// before Run starts or after it returns.
func (e *Engine) Phase() Phase {
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.logger.Debug("session phase", slog.String("phase", p.String()))
}

func dialUpstream(ctx context.Context, url string) (upstreamConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Run drives the session to completion and returns its terminal
// outcome: nil for a clean shutdown, a *domain.SessionError with kind
// DownstreamGone when the subscriber left, UpstreamFailed when the
// venue connection could not be opened or died. Errors never escape
// the session; the caller only logs them.
func (e *Engine) Run(ctx context.Context) error {
	infra.GlobalMetrics.SessionStarted()
	defer infra.GlobalMetrics.SessionEnded()
	defer e.setPhase(Closed)

	e.setPhase(Seeding)
	e.seed(ctx)

	e.setPhase(Subscribing)
	conn, err := e.dial(ctx, e.cfg.WSURL)
	if err != nil {
		e.setPhase(Closing)
		return domain.NewSessionError(domain.UpstreamFailed, "dial", err)
	}
	defer conn.Close()

	// Unblock the read loop on shutdown; there is no read deadline.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := e.subscribe(conn); err != nil {
		e.setPhase(Closing)
		return domain.NewSessionError(domain.UpstreamFailed, "subscribe", err)
	}

	e.setPhase(Streaming)
	err = e.stream(ctx, conn)
	e.setPhase(Closing)
	return err
}

// seed fetches the initial open-order set. Failure is logged and
// treated as an empty set, never fatal.
func (e *Engine) seed(ctx context.Context) {
	raw, err := e.seeder.FrontendOpenOrders(ctx, e.state.Wallet)
	if err != nil {
		seedErr := domain.NewSessionError(domain.SeedFailed, "frontend_open_orders", err)
		e.logger.Warn("open-orders seed failed, starting empty", slog.Any("error", seedErr))
		return
	}
	e.state.SeedOrders(raw)
	e.logger.Info("seeded open orders", slog.Int("count", e.state.OpenOrderCount()))
}

// subscribe issues the three subscription requests on the freshly
// opened multiplexed connection.
func (e *Engine) subscribe(conn upstreamConn) error {
	subs := []hl.Subscription{
		{Type: hl.ChannelWebData2, User: e.state.Wallet},
		{Type: hl.ChannelOrderUpdates, User: e.state.Wallet},
		{Type: hl.ChannelL2Book, Coin: e.state.Coin},
	}
	for _, sub := range subs {
		req := hl.SubscribeRequest{Method: "subscribe", Subscription: sub}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Type, err)
		}
	}
	e.logger.Info("subscribed", slog.Int("subs", len(subs)))
	return nil
}

// stream is the Streaming self-loop: read one frame, dispatch, publish.
func (e *Engine) stream(ctx context.Context, conn upstreamConn) error {
	badFrames := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = domain.ErrUpstreamClosed
			}
			return domain.NewSessionError(domain.UpstreamFailed, "read", err)
		}

		msg, err := decodeFrame(raw)
		if err != nil {
			badFrames++
			infra.GlobalMetrics.RecordBadFrame()
			e.logger.Warn("skipping undecodable frame",
				slog.Any("error", err), slog.Int("consecutive", badFrames))
			if badFrames >= maxConsecutiveBadFrames {
				return domain.NewSessionError(domain.UpstreamFailed, "decode", err)
			}
			continue
		}
		badFrames = 0
		if msg == nil {
			// Not one of ours (subscriptionResponse, pong, ...).
			continue
		}

		e.apply(msg)
		infra.GlobalMetrics.RecordMessage()

		if err := e.publisher.Publish(e.state.Snapshot()); err != nil {
			infra.GlobalMetrics.RecordPublishError()
			return domain.NewSessionError(domain.DownstreamGone, "publish", err)
		}
		infra.GlobalMetrics.RecordPublish()
	}
}

// channelMessage is the tagged variant over the three subscribed
// channel kinds. Keeping the dispatch a type switch over this sum makes
// an unhandled channel a visible gap instead of a silent drop.
type channelMessage interface {
	channel() string
}

type accountMsg struct{ data hl.WebData2 }

type ordersMsg struct{ updates []hl.WsOrderStatus }

type bookMsg struct{ book hl.L2Book }

func (accountMsg) channel() string { return hl.ChannelWebData2 }
func (ordersMsg) channel() string  { return hl.ChannelOrderUpdates }
func (bookMsg) channel() string    { return hl.ChannelL2Book }

// decodeFrame peeks the channel tag and decodes the payload into its
// typed form. A frame for a channel we never subscribed returns
// (nil, nil) and is ignored upstream of the publish step.
func decodeFrame(raw []byte) (channelMessage, error) {
	switch gjson.GetBytes(raw, "channel").String() {
	case hl.ChannelWebData2:
		var env struct {
			Data hl.WebData2 `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("webData2: %w", err)
		}
		return accountMsg{data: env.Data}, nil

	case hl.ChannelOrderUpdates:
		var env struct {
			Data []hl.WsOrderStatus `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("orderUpdates: %w", err)
		}
		return ordersMsg{updates: env.Data}, nil

	case hl.ChannelL2Book:
		var env struct {
			Data hl.L2Book `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("l2Book: %w", err)
		}
		return bookMsg{book: env.Data}, nil
	}
	return nil, nil
}

// apply routes one decoded message to its state-update rule.
func (e *Engine) apply(msg channelMessage) {
	switch m := msg.(type) {
	case accountMsg:
		e.state.ApplyAccountState(m.data)
	case ordersMsg:
		e.state.ApplyOrderUpdates(m.updates)
	case bookMsg:
		e.state.ApplyBook(m.book, e.cfg.BookDepth)
	}
}
