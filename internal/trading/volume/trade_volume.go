package volume

import (
	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// Legs holds the sized pair shared by entry and exit volumes. True
// volumes are what the position economically holds; order volumes are
// what goes on the ticket after client-side fee adjustment.
type Legs struct {
	LongVolume       decimal.Decimal
	ShortVolume      decimal.Decimal
	LongOrderVolume  decimal.Decimal
	ShortOrderVolume decimal.Decimal

	LongFee  decimal.Decimal
	ShortFee decimal.Decimal

	LongFeeComputation  core.FeeComputation
	ShortFeeComputation core.FeeComputation
}

// MarketNeutralityRating reports how well the true volumes compensate
// for fees. 1 means exact compensation, 0 none, 2 doubly over
// compensated. Positions outside the configured band are rejected.
func (l *Legs) MarketNeutralityRating() decimal.Decimal {
	target := ShortToLongTargetRatio(l.LongFee, l.ShortFee)
	actual := l.LongVolume.DivRound(l.ShortVolume, intermediateScale)

	denom := target.Sub(one)
	if denom.IsZero() {
		if actual.Equal(target) {
			return one
		}
		return decimal.NewFromInt(-1)
	}
	return actual.Sub(one).DivRound(denom, intermediateScale)
}

// EntryTradeVolume sizes a fresh position from exposure caps and prices
type EntryTradeVolume struct {
	Legs
}

// NewEntryTradeVolume computes neutral true volumes from the exposure
// caps and derives the order volumes for each leg's fee accounting. The
// long leg is a buy, the short leg a sell.
func NewEntryTradeVolume(longFC, shortFC core.FeeComputation, longExposure, shortExposure, longPrice, shortPrice, longFee, shortFee decimal.Decimal) *EntryTradeVolume {
	longVolume := LongVolumeFromExposures(longExposure, shortExposure, longPrice, shortPrice, longFee, shortFee)
	shortVolume := ShortVolumeFromLong(longVolume, longFee, shortFee)

	return &EntryTradeVolume{Legs{
		LongVolume:          longVolume,
		ShortVolume:         shortVolume,
		LongOrderVolume:     orderFromTrue(longVolume, longFee, longFC, core.SideBuy),
		ShortOrderVolume:    orderFromTrue(shortVolume, shortFee, shortFC, core.SideSell),
		LongFee:             longFee,
		ShortFee:            shortFee,
		LongFeeComputation:  longFC,
		ShortFeeComputation: shortFC,
	}}
}

// AdjustOrderVolume rounds both order volumes to the exchanges' step
// sizes and decimal scales. When only one leg is step constrained the
// other leg is re-derived from the rounded one so neutrality survives
// the rounding; when both are constrained neutrality is necessarily
// approximate and only the rating reports the damage.
func (e *EntryTradeVolume) AdjustOrderVolume(longStep, shortStep decimal.Decimal, longScale, shortScale int32) {
	longConstrained := !longStep.IsZero()
	shortConstrained := !shortStep.IsZero()

	switch {
	case longConstrained && !shortConstrained:
		e.LongOrderVolume = RoundByStep(e.LongOrderVolume, longStep).RoundBank(longScale)
		e.LongVolume = trueFromOrder(e.LongOrderVolume, e.LongFee, e.LongFeeComputation, core.SideBuy)
		e.ShortVolume = ShortVolumeFromLong(e.LongVolume, e.LongFee, e.ShortFee)
		e.ShortOrderVolume = orderFromTrue(e.ShortVolume, e.ShortFee, e.ShortFeeComputation, core.SideSell).RoundBank(shortScale)
	case shortConstrained && !longConstrained:
		e.ShortOrderVolume = RoundByStep(e.ShortOrderVolume, shortStep).RoundBank(shortScale)
		e.ShortVolume = trueFromOrder(e.ShortOrderVolume, e.ShortFee, e.ShortFeeComputation, core.SideSell)
		e.LongVolume = LongVolumeFromShort(e.ShortVolume, e.LongFee, e.ShortFee)
		e.LongOrderVolume = orderFromTrue(e.LongVolume, e.LongFee, e.LongFeeComputation, core.SideBuy).RoundBank(longScale)
	case longConstrained && shortConstrained:
		e.LongOrderVolume = RoundByStep(e.LongOrderVolume, longStep).RoundBank(longScale)
		e.ShortOrderVolume = RoundByStep(e.ShortOrderVolume, shortStep).RoundBank(shortScale)
		e.LongVolume = trueFromOrder(e.LongOrderVolume, e.LongFee, e.LongFeeComputation, core.SideBuy)
		e.ShortVolume = trueFromOrder(e.ShortOrderVolume, e.ShortFee, e.ShortFeeComputation, core.SideSell)
	default:
		e.LongOrderVolume = e.LongOrderVolume.RoundBank(longScale)
		e.ShortOrderVolume = e.ShortOrderVolume.RoundBank(shortScale)
		e.LongVolume = trueFromOrder(e.LongOrderVolume, e.LongFee, e.LongFeeComputation, core.SideBuy)
		e.ShortVolume = trueFromOrder(e.ShortOrderVolume, e.ShortFee, e.ShortFeeComputation, core.SideSell)
	}
}

// ExitTradeVolume unwinds a position from its entry order volumes
type ExitTradeVolume struct {
	Legs

	// Base-currency fee rates charged at entry, non-zero only for legs
	// whose entry order was CLIENT computed.
	LongBaseFee  decimal.Decimal
	ShortBaseFee decimal.Decimal
}

// NewExitTradeVolume derives the closing volumes from the entry order
// volumes net of the fees already paid. The exit long leg sells what the
// account actually holds; the exit short leg buys back what the short
// actually owes.
func NewExitTradeVolume(longFC, shortFC core.FeeComputation, entryLongOrderVolume, entryShortOrderVolume, longFee, shortFee decimal.Decimal) *ExitTradeVolume {
	longBaseFee := decimal.Zero
	shortBaseFee := decimal.Zero
	if longFC == core.FeeComputationClient {
		// entry buy was inflated; the base ledger kept order/(1+fee)
		longBaseFee = longFee.DivRound(one.Add(longFee), intermediateScale)
	}
	if shortFC == core.FeeComputationClient {
		// entry sell was deflated; the short owes order/(1-fee)
		shortBaseFee = shortFee.DivRound(one.Sub(shortFee), intermediateScale)
	}

	longVolume := entryLongOrderVolume.Mul(one.Sub(longBaseFee))
	shortVolume := entryShortOrderVolume.Mul(one.Add(shortBaseFee))

	return &ExitTradeVolume{
		Legs: Legs{
			LongVolume:          longVolume,
			ShortVolume:         shortVolume,
			LongOrderVolume:     orderFromTrue(longVolume, longFee, longFC, core.SideSell),
			ShortOrderVolume:    orderFromTrue(shortVolume, shortFee, shortFC, core.SideBuy),
			LongFee:             longFee,
			ShortFee:            shortFee,
			LongFeeComputation:  longFC,
			ShortFeeComputation: shortFC,
		},
		LongBaseFee:  longBaseFee,
		ShortBaseFee: shortBaseFee,
	}
}

// AdjustOrderVolume rounds the closing order volumes to exchange
// constraints. Exit legs trade in the opposite direction of entry legs.
func (x *ExitTradeVolume) AdjustOrderVolume(longStep, shortStep decimal.Decimal, longScale, shortScale int32) {
	if !longStep.IsZero() {
		x.LongOrderVolume = RoundByStep(x.LongOrderVolume, longStep)
	}
	if !shortStep.IsZero() {
		x.ShortOrderVolume = RoundByStep(x.ShortOrderVolume, shortStep)
	}
	x.LongOrderVolume = x.LongOrderVolume.RoundBank(longScale)
	x.ShortOrderVolume = x.ShortOrderVolume.RoundBank(shortScale)
	x.LongVolume = trueFromOrder(x.LongOrderVolume, x.LongFee, x.LongFeeComputation, core.SideSell)
	x.ShortVolume = trueFromOrder(x.ShortOrderVolume, x.ShortFee, x.ShortFeeComputation, core.SideBuy)
}
