// Package exchange implements the gateway contract over a venue's REST API.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
	pkghttp "spread_trader/pkg/http"
)

// RESTExchange talks to a venue exposing the common REST surface. All
// venue-specific quirks live in configuration, not code.
type RESTExchange struct {
	name   string
	client *pkghttp.Client
	logger core.ILogger
}

// NewRESTExchange creates a gateway for one venue
func NewRESTExchange(name, baseURL string, timeout time.Duration, signer pkghttp.Signer, logger core.ILogger) *RESTExchange {
	return &RESTExchange{
		name:   name,
		client: pkghttp.NewClient(baseURL, timeout, signer),
		logger: logger.WithField("exchange", name),
	}
}

func (e *RESTExchange) GetName() string { return e.name }

type tickerResponse struct {
	Pair string          `json:"pair"`
	Bid  decimal.Decimal `json:"bid"`
	Ask  decimal.Decimal `json:"ask"`
	TS   int64           `json:"ts"`
}

func (r tickerResponse) toTicker(exchange string) (core.Ticker, error) {
	pair, err := core.ParseCurrencyPair(r.Pair)
	if err != nil {
		return core.Ticker{}, err
	}
	return core.Ticker{
		Exchange:  exchange,
		Pair:      pair,
		Bid:       r.Bid,
		Ask:       r.Ask,
		Timestamp: time.UnixMilli(r.TS),
	}, nil
}

func (e *RESTExchange) GetTicker(ctx context.Context, pair core.CurrencyPair) (core.Ticker, error) {
	body, err := e.client.Get(ctx, "/api/v1/ticker", map[string]string{"pair": pair.String()})
	if err != nil {
		return core.Ticker{}, fmt.Errorf("ticker %s: %w", pair, err)
	}
	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Ticker{}, err
	}
	return resp.toTicker(e.name)
}

func (e *RESTExchange) GetTickers(ctx context.Context, pairs []core.CurrencyPair) ([]core.Ticker, error) {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}
	body, err := e.client.Get(ctx, "/api/v1/tickers", map[string]string{"pairs": strings.Join(names, ",")})
	if err != nil {
		if isNotFound(err) {
			return nil, core.ErrBatchTickersUnsupported
		}
		return nil, fmt.Errorf("batch tickers: %w", err)
	}
	var resp []tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := make([]core.Ticker, 0, len(resp))
	for _, r := range resp {
		t, err := r.toTicker(e.name)
		if err != nil {
			e.logger.Warn("Skipping ticker with bad pair", "pair", r.Pair)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type bookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

type orderBookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

func (e *RESTExchange) GetOrderBook(ctx context.Context, pair core.CurrencyPair) (core.OrderBook, error) {
	body, err := e.client.Get(ctx, "/api/v1/orderbook", map[string]string{"pair": pair.String()})
	if err != nil {
		return core.OrderBook{}, fmt.Errorf("order book %s: %w", pair, err)
	}
	var resp orderBookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.OrderBook{}, err
	}
	book := core.OrderBook{Pair: pair}
	for _, l := range resp.Bids {
		book.Bids = append(book.Bids, core.OrderBookEntry{Price: l.Price, Volume: l.Volume})
	}
	for _, l := range resp.Asks {
		book.Asks = append(book.Asks, core.OrderBookEntry{Price: l.Price, Volume: l.Volume})
	}
	return book, nil
}

func (e *RESTExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	body, err := e.client.Get(ctx, "/api/v1/balance", map[string]string{"currency": currency})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance %s: %w", currency, err)
	}
	var resp struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Amount, nil
}

func (e *RESTExchange) GetTradingFee(ctx context.Context, pair core.CurrencyPair) (core.ExchangeFee, error) {
	body, err := e.client.Get(ctx, "/api/v1/fee", map[string]string{"pair": pair.String()})
	if err != nil {
		if isNotFound(err) {
			return core.ExchangeFee{}, core.ErrDynamicFeeUnsupported
		}
		return core.ExchangeFee{}, fmt.Errorf("trading fee %s: %w", pair, err)
	}
	var resp struct {
		TradeFee  decimal.Decimal  `json:"tradeFee"`
		MarginFee *decimal.Decimal `json:"marginFee"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.ExchangeFee{}, err
	}
	return core.ExchangeFee{TradeFee: resp.TradeFee, MarginFee: resp.MarginFee}, nil
}

type orderResponse struct {
	ID           string          `json:"orderId"`
	Pair         string          `json:"pair"`
	Side         string          `json:"side"`
	Status       string          `json:"status"`
	LimitPrice   decimal.Decimal `json:"limitPrice"`
	Volume       decimal.Decimal `json:"volume"`
	FilledVolume decimal.Decimal `json:"filledVolume"`
	CreatedAt    int64           `json:"createdAt"`
}

func (r orderResponse) toOrder() (core.Order, error) {
	pair, err := core.ParseCurrencyPair(r.Pair)
	if err != nil {
		return core.Order{}, err
	}
	return core.Order{
		ID:           r.ID,
		Pair:         pair,
		Side:         core.Side(r.Side),
		Status:       core.OrderStatus(r.Status),
		LimitPrice:   r.LimitPrice,
		Volume:       r.Volume,
		FilledVolume: r.FilledVolume,
		CreatedAt:    time.UnixMilli(r.CreatedAt),
	}, nil
}

func (e *RESTExchange) PlaceLimitOrder(ctx context.Context, side core.Side, pair core.CurrencyPair, volume, limitPrice decimal.Decimal) (string, error) {
	body, err := e.client.Post(ctx, "/api/v1/orders", map[string]interface{}{
		"side":       string(side),
		"pair":       pair.String(),
		"volume":     volume.String(),
		"limitPrice": limitPrice.String(),
	})
	if err != nil {
		var apiErr *pkghttp.APIError
		if errors.As(err, &apiErr) && strings.Contains(string(apiErr.Body), "insufficient") {
			return "", core.ErrInsufficientFunds
		}
		return "", fmt.Errorf("place %s order %s: %w", side, pair, err)
	}
	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

func (e *RESTExchange) CancelOrder(ctx context.Context, id string) error {
	_, err := e.client.Delete(ctx, "/api/v1/orders/"+url.PathEscape(id), nil)
	if err != nil {
		if isNotFound(err) {
			return core.ErrOrderNotFound
		}
		return fmt.Errorf("cancel order %s: %w", id, err)
	}
	return nil
}

func (e *RESTExchange) GetOrder(ctx context.Context, id string) (core.Order, error) {
	body, err := e.client.Get(ctx, "/api/v1/orders/"+url.PathEscape(id), nil)
	if err != nil {
		if isNotFound(err) {
			return core.Order{}, core.ErrOrderNotFound
		}
		return core.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	return resp.toOrder()
}

func (e *RESTExchange) GetOpenOrders(ctx context.Context) ([]core.Order, error) {
	body, err := e.client.Get(ctx, "/api/v1/orders", map[string]string{"status": "open"})
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	var resp []orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := make([]core.Order, 0, len(resp))
	for _, r := range resp {
		o, err := r.toOrder()
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var apiErr *pkghttp.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
