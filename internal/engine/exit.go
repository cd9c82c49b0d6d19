package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
	"spread_trader/internal/journal"
	"spread_trader/internal/trading/volume"
)

// considerExit closes the open position when the exit spread drops below
// the persisted target, a force-close is requested, or the position
// timed out.
func (e *Engine) considerExit(ctx context.Context, sp core.Spread, forceClose bool) error {
	position := e.position
	combo := sp.Combination

	timedOut := false
	if timeout := e.cfg.TradeTimeout(); timeout > 0 && position.Age(e.now()) > timeout {
		timedOut = true
	}

	spreadHit := sp.Out.LessThan(position.ExitTarget)
	if !spreadHit && !forceClose && !timedOut {
		return nil
	}

	longFee, shortFee, err := e.feesFor(ctx, combo)
	if err != nil {
		return err
	}

	// a timed-out exit that would immediately re-qualify as an entry just
	// flaps; hold it unless forced
	if timedOut && !spreadHit && !forceClose {
		if sp.In.GreaterThan(e.entryTarget(longFee, shortFee)) {
			e.logger.Info("Holding timed-out position, spread still qualifies for entry",
				"combination", combo.String(), "spread", sp.In)
			return nil
		}
	}

	longName, shortName := combo.LongExchange, combo.ShortExchange
	longEx, shortEx := e.exchanges[longName], e.exchanges[shortName]

	// unwind what actually filled, not what was asked for
	longEntryVolume := e.filledVolume(ctx, longEx, position.LongTrade, combo.Pair)
	shortEntryVolume := e.filledVolume(ctx, shortEx, position.ShortTrade, combo.Pair)

	exit := volume.NewExitTradeVolume(
		e.feeComputation(longName), e.feeComputation(shortName),
		longEntryVolume, shortEntryVolume,
		longFee, shortFee)
	exit.AdjustOrderVolume(
		e.stepSize(longName), e.stepSize(shortName),
		e.volumeScale(longName), e.volumeScale(shortName))

	longLimit, shortLimit, err := e.exitLimitPrices(ctx, combo, exit)
	if err != nil {
		e.logger.Info("Skipping exit, not enough book depth",
			"combination", combo.String(), "error", err)
		return nil
	}

	e.logger.Info("Closing position",
		"combination", combo.String(),
		"exit_spread", sp.Out,
		"exit_target", position.ExitTarget,
		"force_close", forceClose,
		"timed_out", timedOut)

	longOrderID, err := longEx.PlaceLimitOrder(ctx, core.SideSell, combo.Pair, exit.LongOrderVolume, longLimit)
	if err != nil {
		e.logger.Warn("Exit long order rejected, will retry next tick",
			"combination", combo.String(), "error", err)
		return nil
	}

	shortOrderID, err := shortEx.PlaceLimitOrder(ctx, core.SideBuy, combo.Pair, exit.ShortOrderVolume, shortLimit)
	if err != nil {
		e.bailOut = true
		return fmt.Errorf("exit short leg failed after long leg %s placed: %w", longOrderID, err)
	}

	e.invalidateBalances(longName, shortName)
	e.awaitFill(ctx, longEx, longOrderID)
	e.awaitFill(ctx, shortEx, shortOrderID)

	updatedBalance, err := e.combinedBalance(ctx)
	if err != nil {
		e.logger.Warn("Balance refresh after exit failed", "error", err)
		updatedBalance = position.EntryBalance
	}
	profit := updatedBalance.Sub(position.EntryBalance)
	profitF, _ := profit.Float64()

	e.logger.Info("Position closed",
		"combination", combo.String(),
		"entry_balance", position.EntryBalance,
		"updated_balance", updatedBalance,
		"profit", profit)

	if e.journal != nil {
		record := journal.ClosedTrade{
			Pair:          combo.Pair,
			LongExchange:  longName,
			ShortExchange: shortName,
			EntryTime:     position.EntryTime,
			ExitTime:      e.now(),
			EntrySpread:   entrySpreadFromTrades(position.LongTrade.Entry, position.ShortTrade.Entry),
			ExitSpread:    sp.Out,
			LongVolume:    exit.LongOrderVolume,
			ShortVolume:   exit.ShortOrderVolume,
			EntryBalance:  position.EntryBalance,
			ExitBalance:   updatedBalance,
			Profit:        profit,
		}
		if err := e.journal.Record(record); err != nil {
			e.logger.Error("Failed to journal closed trade", "error", err)
		}
	}

	e.notifier.NotifyExit(core.ExitNotification{
		Combination:     combo,
		ExitSpread:      sp.Out,
		LongVolume:      exit.LongOrderVolume,
		ShortVolume:     exit.ShortOrderVolume,
		LongLimitPrice:  longLimit,
		ShortLimitPrice: shortLimit,
		EntryBalance:    position.EntryBalance,
		UpdatedBalance:  updatedBalance,
	})

	position.ClearOrderIDs()
	// Both legs are closed on the venues at this point. A stale state file
	// must not resurrect the position, so drop it in memory even when the
	// store cannot be cleared.
	if err := e.store.Delete(); err != nil {
		e.logger.Error("Failed to clear persisted position, state file may be stale", "error", err)
	}
	e.position = nil
	e.metrics.PositionsClosed.Inc()
	e.metrics.Profit.Set(profitF)

	// the sentinel is a one-shot request, consume it once honored
	if forceClose {
		if err := os.Remove(e.cfg.App.ForceCloseFile); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Could not remove force-close file", "error", err)
		}
	}
	return nil
}

// exitLimitPrices walks the books in the unwind direction: bids on the
// long venue (we sell), asks on the short venue (we buy back).
func (e *Engine) exitLimitPrices(ctx context.Context, combo core.TradeCombination, exit *volume.ExitTradeVolume) (longLimit, shortLimit decimal.Decimal, err error) {
	longBook, err := e.exchanges[combo.LongExchange].GetOrderBook(ctx, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shortBook, err := e.exchanges[combo.ShortExchange].GetOrderBook(ctx, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	longLimit, err = limitPriceForVolume(longBook.Bids, exit.LongOrderVolume)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shortLimit, err = limitPriceForVolume(shortBook.Asks, exit.ShortOrderVolume)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return longLimit, shortLimit, nil
}

// entrySpreadFromTrades recovers the spread realized at entry from the
// recorded entry prices.
func entrySpreadFromTrades(longEntry, shortEntry decimal.Decimal) decimal.Decimal {
	if longEntry.IsZero() {
		return decimal.Zero
	}
	return shortEntry.Sub(longEntry).DivRound(longEntry, 20)
}
