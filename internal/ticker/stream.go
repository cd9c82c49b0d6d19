package ticker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
	"spread_trader/pkg/websocket"
)

// tickerMessage is the wire format of a push-feed quote
type tickerMessage struct {
	Pair      string          `json:"pair"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp int64           `json:"ts"`
}

type subscribeMessage struct {
	Op    string   `json:"op"`
	Pairs []string `json:"pairs"`
}

// StreamingStrategy is a no-op fetch. Quotes arrive over a websocket
// subscription and land in the store from the message handler.
type StreamingStrategy struct {
	exchange string
	pairs    []core.CurrencyPair
	store    *Store
	client   *websocket.Client
	logger   core.ILogger
}

// NewStreamingStrategy connects the push feed and subscribes to the
// given pairs on every (re)connect.
func NewStreamingStrategy(exchangeName, wsURL string, pairs []core.CurrencyPair, store *Store, logger core.ILogger) *StreamingStrategy {
	s := &StreamingStrategy{
		exchange: exchangeName,
		pairs:    pairs,
		store:    store,
		logger:   logger,
	}
	s.client = websocket.NewClient(wsURL, s.handleMessage, logger)
	s.client.SetOnConnected(s.subscribe)
	return s
}

// Start opens the websocket connection
func (s *StreamingStrategy) Start() {
	s.client.Start()
}

// Stop closes the websocket connection
func (s *StreamingStrategy) Stop() {
	s.client.Stop()
}

// Fetch is a no-op; the subscription keeps the store current
func (s *StreamingStrategy) Fetch(ctx context.Context, pairs []core.CurrencyPair) error {
	return nil
}

func (s *StreamingStrategy) subscribe() {
	names := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		names[i] = p.String()
	}
	msg := subscribeMessage{Op: "subscribe", Pairs: names}
	if err := s.client.Send(msg); err != nil {
		s.logger.Error("Failed to send subscribe message", "exchange", s.exchange, "error", err)
	}
}

// HandleMessage parses one push-feed frame and stores the quote
func (s *StreamingStrategy) handleMessage(data []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("Dropping malformed ticker frame", "exchange", s.exchange, "error", err)
		return
	}
	pair, err := core.ParseCurrencyPair(msg.Pair)
	if err != nil {
		s.logger.Warn("Dropping ticker frame with bad pair", "exchange", s.exchange, "pair", msg.Pair)
		return
	}
	s.store.Put(core.Ticker{
		Exchange:  s.exchange,
		Pair:      pair,
		Bid:       msg.Bid,
		Ask:       msg.Ask,
		Timestamp: time.UnixMilli(msg.Timestamp),
	})
}
