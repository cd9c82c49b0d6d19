package volume

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"spread_trader/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertApprox(t *testing.T, expected, actual decimal.Decimal) {
	t.Helper()
	diff := expected.Sub(actual).Abs()
	assert.True(t, diff.LessThan(dec("0.0000000001")),
		"expected %s, got %s (diff %s)", expected, actual, diff)
}

func TestShortToLongTargetRatio(t *testing.T) {
	fees := []string{"0", "0.001", "0.0026", "0.005", "0.05", "0.099"}
	for _, lf := range fees {
		for _, sf := range fees {
			longFee, shortFee := dec(lf), dec(sf)
			expected := one.Add(shortFee).DivRound(one.Sub(longFee), intermediateScale)
			assert.True(t, expected.Equal(ShortToLongTargetRatio(longFee, shortFee)),
				"longFee=%s shortFee=%s", lf, sf)
		}
	}
}

func TestVolumeRatioRoundTrip(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	for _, v := range []string{"0.001", "1", "12.34567890", "100000"} {
		in := dec(v)
		out := ShortVolumeFromLong(LongVolumeFromShort(in, lf, sf), lf, sf)
		assertApprox(t, in, out)
	}
}

func TestLongVolumeFromExposuresCapsOnBindingLeg(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")

	// long exposure binds
	v := LongVolumeFromExposures(dec("100"), dec("100000"), dec("100"), dec("110"), lf, sf)
	assertApprox(t, dec("1"), v)

	// short exposure binds
	v = LongVolumeFromExposures(dec("100000"), dec("110"), dec("100"), dec("110"), lf, sf)
	ratio := ShortToLongTargetRatio(lf, sf)
	assertApprox(t, ratio, v)
}

func TestRoundByStepTiesToEven(t *testing.T) {
	cases := []struct {
		input, step, expected string
	}{
		{"65", "10", "60"},
		{"75", "10", "80"},
		{"64", "5", "65"},
		{"66", "10", "70"},
		{"0.015", "0.01", "0.02"},
		{"0.025", "0.01", "0.02"},
	}
	for _, tc := range cases {
		got := RoundByStep(dec(tc.input), dec(tc.step))
		assert.True(t, dec(tc.expected).Equal(got),
			"roundByStep(%s, %s) = %s, want %s", tc.input, tc.step, got, tc.expected)
	}
}

func TestRoundByStepZeroStepIsIdentity(t *testing.T) {
	v := dec("1.23456")
	assert.True(t, v.Equal(RoundByStep(v, decimal.Zero)))
}

func TestAddSubtractFees(t *testing.T) {
	assert.True(t, dec("100.5").Equal(AddFees(dec("100"), dec("0.005"))))
	assert.True(t, dec("99.5").Equal(SubtractFees(dec("100"), dec("0.005"))))
}

func TestEntryNeutralityRatingAllFeeComputationModes(t *testing.T) {
	modes := []core.FeeComputation{core.FeeComputationServer, core.FeeComputationClient}
	for _, longFC := range modes {
		for _, shortFC := range modes {
			t.Run(fmt.Sprintf("%s_%s", longFC, shortFC), func(t *testing.T) {
				e := NewEntryTradeVolume(longFC, shortFC,
					dec("1000"), dec("1000"), dec("100"), dec("110"),
					dec("0.005"), dec("0.0026"))
				assertApprox(t, one, e.MarketNeutralityRating())
			})
		}
	}
}

func TestEntryOrderVolumeFeeAdjustment(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")

	server := NewEntryTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)
	assert.True(t, server.LongOrderVolume.Equal(server.LongVolume))
	assert.True(t, server.ShortOrderVolume.Equal(server.ShortVolume))

	client := NewEntryTradeVolume(core.FeeComputationClient, core.FeeComputationClient,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)
	// buy inflated, sell deflated
	assert.True(t, client.LongOrderVolume.Equal(AddFees(client.LongVolume, lf)))
	assert.True(t, client.ShortOrderVolume.Equal(SubtractFees(client.ShortVolume, sf)))
}

func TestAdjustOrderVolumeSingleStepPreservesNeutrality(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	e := NewEntryTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)

	e.AdjustOrderVolume(dec("0.5"), decimal.Zero, 8, 8)

	// long order landed on the step grid
	assert.True(t, e.LongOrderVolume.Mod(dec("0.5")).IsZero())
	// short leg was re-derived from the rounded long leg
	assertApprox(t, one, e.MarketNeutralityRating())
}

func TestAdjustOrderVolumeBothStepsReportsRatingOnly(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	e := NewEntryTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)

	e.AdjustOrderVolume(dec("0.5"), dec("0.5"), 8, 8)

	assert.True(t, e.LongOrderVolume.Mod(dec("0.5")).IsZero())
	assert.True(t, e.ShortOrderVolume.Mod(dec("0.5")).IsZero())
	// neutrality is approximate but the rating must stay in the band
	rating := e.MarketNeutralityRating()
	assert.True(t, rating.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, rating.LessThanOrEqual(decimal.NewFromInt(2)))
}

func TestExitUnwindsEntryExactlyWithServerFees(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	entry := NewEntryTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)

	exit := NewExitTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		entry.LongOrderVolume, entry.ShortOrderVolume, lf, sf)

	assert.True(t, exit.LongVolume.Equal(entry.LongVolume))
	assert.True(t, exit.ShortVolume.Equal(entry.ShortVolume))
	assert.True(t, exit.LongBaseFee.IsZero())
	assert.True(t, exit.ShortBaseFee.IsZero())
}

func TestExitBaseFeesUnwindClientEntry(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	entry := NewEntryTradeVolume(core.FeeComputationClient, core.FeeComputationClient,
		dec("1000"), dec("1000"), dec("100"), dec("110"), lf, sf)

	exit := NewExitTradeVolume(core.FeeComputationClient, core.FeeComputationClient,
		entry.LongOrderVolume, entry.ShortOrderVolume, lf, sf)

	// base fees shrink the inflated entry orders back to the true holdings
	assertApprox(t, entry.LongVolume, exit.LongVolume)
	assertApprox(t, entry.ShortVolume, exit.ShortVolume)
	assert.False(t, exit.LongBaseFee.IsZero())
	assert.False(t, exit.ShortBaseFee.IsZero())
}

func TestExitAdjustOrderVolume(t *testing.T) {
	lf, sf := dec("0.005"), dec("0.0026")
	exit := NewExitTradeVolume(core.FeeComputationServer, core.FeeComputationServer,
		dec("1.2345678901"), dec("1.2222222222"), lf, sf)

	exit.AdjustOrderVolume(dec("0.001"), decimal.Zero, 8, 4)

	assert.True(t, exit.LongOrderVolume.Mod(dec("0.001")).IsZero())
	assert.True(t, exit.ShortOrderVolume.Exponent() >= -4)
}
