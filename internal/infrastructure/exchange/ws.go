package exchange

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const KrakenWSURL = "wss://ws.kraken.com"

// TickerFeed streams live prices over the public websocket so position
// monitoring sees fresher prices than REST polling alone. It is an
// optimization layer: the REST ticker remains the fallback.
type TickerFeed struct {
	wsURL     string
	logger    *zap.Logger
	conn      *websocket.Conn
	callbacks []func(symbol string, price float64)
	symbols   map[string]string // websocket pair name -> REST symbol
	mu        sync.Mutex
}

func NewTickerFeed(wsURL string, logger *zap.Logger) *TickerFeed {
	if wsURL == "" {
		wsURL = KrakenWSURL
	}
	return &TickerFeed{
		wsURL:   wsURL,
		logger:  logger,
		symbols: make(map[string]string),
	}
}

func (f *TickerFeed) OnPriceUpdate(callback func(symbol string, price float64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callback)
}

// Subscribe connects if needed and subscribes to ticker updates.
// pairs maps the websocket pair name (e.g. "XBT/EUR") to the REST symbol.
func (f *TickerFeed) Subscribe(pairs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var wsNames []string
	for wsName, symbol := range pairs {
		if _, known := f.symbols[wsName]; !known {
			f.symbols[wsName] = symbol
			wsNames = append(wsNames, wsName)
		}
	}
	if len(wsNames) == 0 {
		return nil
	}

	if f.conn == nil {
		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
		if err != nil {
			return err
		}
		f.conn = conn
		go f.readLoop(conn)
	}

	sub := map[string]interface{}{
		"event":        "subscribe",
		"pair":         wsNames,
		"subscription": map[string]string{"name": "ticker"},
	}
	return f.conn.WriteJSON(sub)
}

func (f *TickerFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

func (f *TickerFeed) readLoop(conn *websocket.Conn) {
	defer func() {
		f.mu.Lock()
		if f.conn == conn {
			f.conn = nil
		}
		f.mu.Unlock()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			f.logger.Warn("ticker feed read error", zap.Error(err))
			return
		}

		// Data messages are arrays: [channelID, payload, "ticker", pair].
		// Everything else (heartbeats, subscription acks) is an object.
		var frame []json.RawMessage
		if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 4 {
			continue
		}

		var channel string
		if err := json.Unmarshal(frame[2], &channel); err != nil || channel != "ticker" {
			continue
		}
		var wsName string
		if err := json.Unmarshal(frame[3], &wsName); err != nil {
			continue
		}

		var payload struct {
			C []string `json:"c"` // last trade [price, volume]
		}
		if err := json.Unmarshal(frame[1], &payload); err != nil || len(payload.C) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(payload.C[0], 64)
		if err != nil || price <= 0 {
			continue
		}

		f.mu.Lock()
		symbol, known := f.symbols[wsName]
		callbacks := make([]func(string, float64), len(f.callbacks))
		copy(callbacks, f.callbacks)
		f.mu.Unlock()

		if !known {
			continue
		}
		for _, cb := range callbacks {
			cb(symbol, price)
		}
	}
}
