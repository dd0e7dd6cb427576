package indicator

import "github.com/shopspring/decimal"

// mainLotBucket maps a USDT balance range to the base lot in USDT.
type mainLotBucket struct {
	upTo decimal.Decimal
	lot  decimal.Decimal
}

var mainLotBuckets = []mainLotBucket{
	{decimal.NewFromInt(400), decimal.NewFromInt(10)},
	{decimal.NewFromInt(900), decimal.NewFromInt(20)},
	{decimal.NewFromInt(1400), decimal.NewFromInt(30)},
	{decimal.NewFromInt(2000), decimal.NewFromInt(40)},
	{decimal.NewFromInt(2600), decimal.NewFromInt(50)},
	{decimal.NewFromInt(3200), decimal.NewFromInt(60)},
	{decimal.NewFromInt(3900), decimal.NewFromInt(70)},
	{decimal.NewFromInt(4600), decimal.NewFromInt(80)},
	{decimal.NewFromInt(5300), decimal.NewFromInt(90)},
}

// MainLot returns the base lot for a USDT balance. Balances past the
// last bucket keep its lot.
func MainLot(usdtBalance decimal.Decimal) decimal.Decimal {
	for _, b := range mainLotBuckets {
		if usdtBalance.LessThan(b.upTo) {
			return b.lot
		}
	}
	return mainLotBuckets[len(mainLotBuckets)-1].lot
}

// rsiBand maps an RSI ceiling to lot and grid multipliers. Lot shrinks
// and the grid tightens as RSI rises: buy big when oversold, trickle
// when overbought.
type rsiBand struct {
	upTo     float64
	lotMult  decimal.Decimal
	gridMult decimal.Decimal
}

var rsiBands = []rsiBand{
	{20, decimal.NewFromFloat(3.0), decimal.NewFromFloat(3.8)},
	{30, decimal.NewFromFloat(2.0), decimal.NewFromFloat(3.0)},
	{40, decimal.NewFromFloat(1.5), decimal.NewFromFloat(2.2)},
	{50, decimal.NewFromFloat(1.0), decimal.NewFromFloat(1.6)},
	{60, decimal.NewFromFloat(0.5), decimal.NewFromFloat(1.2)},
	{70, decimal.NewFromFloat(0.25), decimal.NewFromFloat(1.0)},
}

// overbought tail: anything above the last band.
var rsiTail = rsiBand{0, decimal.NewFromFloat(0.15), decimal.NewFromFloat(1.0)}

// SizeForRSI scales the main lot and base grid spacing by the RSI band.
func SizeForRSI(rsi float64, mainLot, baseGrid decimal.Decimal) (lot, gridSize decimal.Decimal) {
	for _, b := range rsiBands {
		if rsi <= b.upTo {
			return mainLot.Mul(b.lotMult), baseGrid.Mul(b.gridMult)
		}
	}
	return mainLot.Mul(rsiTail.lotMult), baseGrid.Mul(rsiTail.gridMult)
}
