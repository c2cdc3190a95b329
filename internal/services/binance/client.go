package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// Client implements a MarketStream backed by the Binance kline
// WebSocket. Only closed klines are emitted, so every candle on the
// channel is final.
type Client struct {
	l              *applogger.Logger
	websocketURL   string
	symbols        []string
	timeframe      drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new Binance MarketStream.
func New(l *applogger.Logger, websocketURL string, symbols []string, tf drepo.Timeframe, reconnectDelay, pingInterval time.Duration) *Client {
	return &Client{
		l:              l,
		websocketURL:   websocketURL,
		symbols:        symbols,
		timeframe:      tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.l.Info("binance connected", applogger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to kline streams for the configured symbols.
func (c *Client) Subscribe(_ context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}

	params := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		params = append(params, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), c.timeframe))
	}

	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe klines: %w", err)
	}
	c.l.Info("binance subscribed", applogger.Strings("streams", params))
	return nil
}

type wsKline struct {
	Start  int64  `json:"t"` // ms
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Close  string `json:"c"`
	Volume string `json:"v"`
	Closed bool   `json:"x"`
}

type wsKlineEvent struct {
	Type   string  `json:"e"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

// Read streams closed candles and errors. The read loop exits on the
// first transport error; the caller owns reconnect policy.
func (c *Client) Read(ctx context.Context) (<-chan models.SymbolCandle, <-chan error) {
	candles := make(chan models.SymbolCandle, 256)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}

				var evt wsKlineEvent
				if err := json.Unmarshal(b, &evt); err != nil {
					// subscription acks and other non-kline frames
					continue
				}
				if evt.Type != "kline" || !evt.Kline.Closed {
					continue
				}

				candle, err := candleFrom(evt.Kline)
				if err != nil {
					c.l.Warn("binance kline parse error",
						applogger.String("symbol", evt.Symbol),
						applogger.Error(err))
					continue
				}
				select {
				case candles <- models.SymbolCandle{Symbol: evt.Symbol, Candle: candle}:
				default:
					c.l.Warn("binance candle dropped on backpressure",
						applogger.String("symbol", evt.Symbol))
				}
			}
		}
	}()

	return candles, errs
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }

func candleFrom(k wsKline) (models.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("low: %w", err)
	}
	closePx, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("close: %w", err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("volume: %w", err)
	}

	return models.Candle{
		Timestamp: time.UnixMilli(k.Start).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    vol,
	}, nil
}
