// Package volume sizes the two legs of a position so they stay market
// neutral after fees, under both server-side and client-side fee
// accounting.
package volume

import (
	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// intermediateScale is the precision used for internal divisions before
// order volumes are rounded down to exchange constraints.
const intermediateScale = 20

var one = decimal.NewFromInt(1)

// ShortToLongTargetRatio is the neutral long:short sizing ratio
// (1+shortFee)/(1-longFee). Fees shrink the short leg's effective
// proceeds and grow the long leg's effective cost, so neutral legs are
// not sized 1:1.
func ShortToLongTargetRatio(longFee, shortFee decimal.Decimal) decimal.Decimal {
	return one.Add(shortFee).DivRound(one.Sub(longFee), intermediateScale)
}

// LongVolumeFromExposures caps the long volume by whichever exchange's
// exposure limit binds first.
func LongVolumeFromExposures(longExposure, shortExposure, longPrice, shortPrice, longFee, shortFee decimal.Decimal) decimal.Decimal {
	ratio := ShortToLongTargetRatio(longFee, shortFee)
	fromLong := longExposure.DivRound(longPrice, intermediateScale)
	fromShort := ratio.Mul(shortExposure).DivRound(shortPrice, intermediateScale)
	return decimal.Min(fromLong, fromShort)
}

// ShortVolumeFromLong applies the target ratio to derive the short leg
func ShortVolumeFromLong(longVolume, longFee, shortFee decimal.Decimal) decimal.Decimal {
	return longVolume.DivRound(ShortToLongTargetRatio(longFee, shortFee), intermediateScale)
}

// LongVolumeFromShort inverts ShortVolumeFromLong
func LongVolumeFromShort(shortVolume, longFee, shortFee decimal.Decimal) decimal.Decimal {
	return shortVolume.Mul(ShortToLongTargetRatio(longFee, shortFee))
}

// AddFees inflates a buy order so the net filled amount matches the
// intended volume when the venue charges fees client side.
func AddFees(volume, fee decimal.Decimal) decimal.Decimal {
	return volume.Mul(one.Add(fee))
}

// SubtractFees deflates a sell order so the gross amount leaving the
// account matches the intended volume when fees are charged client side.
func SubtractFees(volume, fee decimal.Decimal) decimal.Decimal {
	return volume.Mul(one.Sub(fee))
}

// RoundByStep rounds a volume to the nearest multiple of the exchange's
// step size, ties to even.
func RoundByStep(volume, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return volume
	}
	return volume.DivRound(step, intermediateScale).RoundBank(0).Mul(step)
}

// orderFromTrue converts a true volume into the volume to put on the
// order ticket for one leg.
func orderFromTrue(trueVolume, fee decimal.Decimal, fc core.FeeComputation, side core.Side) decimal.Decimal {
	if fc == core.FeeComputationServer {
		return trueVolume
	}
	if side == core.SideBuy {
		return AddFees(trueVolume, fee)
	}
	return SubtractFees(trueVolume, fee)
}

// trueFromOrder inverts orderFromTrue after an order volume has been
// rounded to exchange constraints.
func trueFromOrder(orderVolume, fee decimal.Decimal, fc core.FeeComputation, side core.Side) decimal.Decimal {
	if fc == core.FeeComputationServer {
		return orderVolume
	}
	if side == core.SideBuy {
		return orderVolume.DivRound(one.Add(fee), intermediateScale)
	}
	return orderVolume.DivRound(one.Sub(fee), intermediateScale)
}
