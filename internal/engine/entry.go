package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
	"spread_trader/internal/state"
	"spread_trader/internal/trading/volume"
)

// considerEntry opens a position when the entry spread clears the
// threshold. Any failure before the first order leaves no trace; a
// failure between the two orders sets the bail-out flag.
func (e *Engine) considerEntry(ctx context.Context, sp core.Spread, forceClose bool) error {
	longFee, shortFee, err := e.feesFor(ctx, sp.Combination)
	if err != nil {
		return err
	}

	target := e.entryTarget(longFee, shortFee)
	if !sp.In.GreaterThan(target) {
		return nil
	}
	if forceClose {
		// entering against a force-close request makes no sense
		return nil
	}

	combo := sp.Combination
	longName, shortName := combo.LongExchange, combo.ShortExchange
	longEx, shortEx := e.exchanges[longName], e.exchanges[shortName]

	entry := volume.NewEntryTradeVolume(
		e.feeComputation(longName), e.feeComputation(shortName),
		e.exposure(ctx, longName), e.exposure(ctx, shortName),
		sp.LongTicker.Ask, sp.ShortTicker.Bid,
		longFee, shortFee)
	entry.AdjustOrderVolume(
		e.stepSize(longName), e.stepSize(shortName),
		e.volumeScale(longName), e.volumeScale(shortName))

	if entry.LongOrderVolume.LessThan(e.minTradable(longName)) ||
		entry.ShortOrderVolume.LessThan(e.minTradable(shortName)) {
		e.logger.Debug("Entry volume below minimum tradable amount",
			"combination", combo.String(),
			"long_volume", entry.LongOrderVolume,
			"short_volume", entry.ShortOrderVolume)
		return nil
	}

	rating := entry.MarketNeutralityRating()
	if rating.LessThan(decimal.NewFromFloat(e.cfg.Trading.NeutralityRatingMin)) ||
		rating.GreaterThan(decimal.NewFromFloat(e.cfg.Trading.NeutralityRatingMax)) {
		e.logger.Warn("Rejecting entry, neutrality rating out of band",
			"combination", combo.String(), "rating", rating)
		return nil
	}

	longLimit, shortLimit, err := e.entryLimitPrices(ctx, combo, entry)
	if err != nil {
		e.logger.Info("Skipping entry, not enough book depth",
			"combination", combo.String(), "error", err)
		return nil
	}

	// re-check the spread at the prices the orders would actually clear
	slipped := shortLimit.Sub(longLimit).DivRound(longLimit, 20)
	if !slipped.GreaterThan(target) {
		e.logger.Info("Skipping entry, spread does not survive slippage",
			"combination", combo.String(),
			"spread", sp.In, "slipped_spread", slipped)
		return nil
	}

	entryBalance, err := e.combinedBalance(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("Opening position",
		"combination", combo.String(),
		"spread", sp.In,
		"long_volume", entry.LongOrderVolume,
		"short_volume", entry.ShortOrderVolume)

	longOrderID, err := longEx.PlaceLimitOrder(ctx, core.SideBuy, combo.Pair, entry.LongOrderVolume, longLimit)
	if err != nil {
		e.logger.Warn("Entry long order rejected, discarding position",
			"combination", combo.String(), "error", err)
		return nil
	}

	shortOrderID, err := shortEx.PlaceLimitOrder(ctx, core.SideSell, combo.Pair, entry.ShortOrderVolume, shortLimit)
	if err != nil {
		e.bailOut = true
		return fmt.Errorf("entry short leg failed after long leg %s placed: %w", longOrderID, err)
	}

	e.invalidateBalances(longName, shortName)
	e.orderVolumes.Put(longOrderID, entry.LongOrderVolume)
	e.orderVolumes.Put(shortOrderID, entry.ShortOrderVolume)

	// persist before waiting on fills: both legs are live on the venues
	// now, and a crash during the wait must resume into this position
	exitTarget := e.exitTarget(sp.In, longFee, shortFee)
	e.position = &state.ActivePosition{
		CurrencyPair: combo.Pair,
		ExitTarget:   exitTarget,
		EntryBalance: entryBalance,
		EntryTime:    e.now(),
		LongTrade: state.Trade{
			Exchange: longName,
			OrderID:  longOrderID,
			Volume:   entry.LongOrderVolume,
			Entry:    longLimit,
		},
		ShortTrade: state.Trade{
			Exchange: shortName,
			OrderID:  shortOrderID,
			Volume:   entry.ShortOrderVolume,
			Entry:    shortLimit,
		},
	}
	if err := e.store.Save(e.position); err != nil {
		return fmt.Errorf("persisting position: %w", err)
	}

	e.awaitFill(ctx, longEx, longOrderID)
	e.awaitFill(ctx, shortEx, shortOrderID)

	e.metrics.PositionsOpened.Inc()
	e.notifier.NotifyEntry(core.EntryNotification{
		Combination:     combo,
		EntrySpread:     sp.In,
		ExitTarget:      exitTarget,
		LongVolume:      entry.LongOrderVolume,
		ShortVolume:     entry.ShortOrderVolume,
		LongLimitPrice:  longLimit,
		ShortLimitPrice: shortLimit,
	})
	return nil
}

// exposure is the counter-currency budget for one leg: the configured
// cap, shrunk to the available balance when that is smaller.
func (e *Engine) exposure(ctx context.Context, exchangeName string) decimal.Decimal {
	limit := decimal.NewFromFloat(e.exchangeCfg[exchangeName].MaxExposure)

	if cached, ok := e.balances.Get(exchangeName); ok {
		return decimal.Min(limit, cached)
	}
	balance, err := e.exchanges[exchangeName].GetBalance(ctx, e.exchangeCfg[exchangeName].HomeCurrency)
	if err != nil {
		e.logger.Warn("Balance lookup failed, using configured exposure cap",
			"exchange", exchangeName, "error", err)
		return limit
	}
	e.balances.Put(exchangeName, balance)
	return decimal.Min(limit, balance)
}

// entryLimitPrices finds prices deep enough in each book to fill the
// entry volumes: asks on the long venue, bids on the short venue.
func (e *Engine) entryLimitPrices(ctx context.Context, combo core.TradeCombination, entry *volume.EntryTradeVolume) (longLimit, shortLimit decimal.Decimal, err error) {
	longBook, err := e.exchanges[combo.LongExchange].GetOrderBook(ctx, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shortBook, err := e.exchanges[combo.ShortExchange].GetOrderBook(ctx, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	longLimit, err = limitPriceForVolume(longBook.Asks, entry.LongOrderVolume)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shortLimit, err = limitPriceForVolume(shortBook.Bids, entry.ShortOrderVolume)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return longLimit, shortLimit, nil
}
